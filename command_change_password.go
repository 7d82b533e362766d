package authclient

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
)

// ChangePasswordMessage follows the command shape used across our services.
type ChangePasswordMessage struct {
	CurrentPassword         string `json:"current_password" doc:"Password currently on the account."`
	NewPassword             string `json:"new_password" doc:"Replacement password."`
	NewPasswordConfirmation string `json:"new_password_confirmation" doc:"Must repeat the replacement password."`
	OnResponse              func(resp *ChangePasswordResponse)
}

func (m ChangePasswordMessage) Type() string { return "auth.change_password" }

// Validate checks the payload before anything goes on the wire.
func (m ChangePasswordMessage) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.CurrentPassword, validation.Required),
		validation.Field(&m.NewPassword, validation.Required, validation.Length(8, 0)),
		validation.Field(&m.NewPasswordConfirmation,
			validation.Required,
			validation.In(m.NewPassword).Error("password confirmation does not match"),
		),
	)
}

// ChangePasswordResponse carries the backend envelope back to the caller.
type ChangePasswordResponse struct {
	Success bool
	Message string
	Errors  map[string]any
}

// ChangePasswordHandler executes password changes against the gateway using
// the current session token.
type ChangePasswordHandler struct {
	gateway Gateway
	tokens  TokenSource
}

func NewChangePasswordHandler(gateway Gateway, tokens TokenSource) *ChangePasswordHandler {
	return &ChangePasswordHandler{gateway: gateway, tokens: tokens}
}

func (h *ChangePasswordHandler) Execute(ctx context.Context, event ChangePasswordMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password change",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ChangePasswordHandler) execute(ctx context.Context, event ChangePasswordMessage) error {
	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid password change payload").
			WithTextCode(TextCodeInvalidPayload)
	}

	token := h.tokens.Token()
	if token == "" {
		return ErrNotAuthenticated
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	result := h.gateway.ChangePassword(ctx, token, ChangePasswordPayload{
		CurrentPassword:         event.CurrentPassword,
		NewPassword:             event.NewPassword,
		NewPasswordConfirmation: event.NewPasswordConfirmation,
	})

	if event.OnResponse != nil {
		event.OnResponse(&ChangePasswordResponse{
			Success: result.Success,
			Message: result.Message,
			Errors:  result.Errors,
		})
	}

	return nil
}
