package authclient_test

import (
	"context"
	"testing"

	auth "github.com/goliatone/go-authclient"
	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangePasswordMessageValidation(t *testing.T) {
	valid := auth.ChangePasswordMessage{
		CurrentPassword:         "old-pass",
		NewPassword:             "new-pass-123",
		NewPasswordConfirmation: "new-pass-123",
	}
	assert.NoError(t, valid.Validate())

	short := valid
	short.NewPassword = "short"
	short.NewPasswordConfirmation = "short"
	assert.Error(t, short.Validate())

	mismatch := valid
	mismatch.NewPasswordConfirmation = "something-else"
	assert.Error(t, mismatch.Validate())

	missing := auth.ChangePasswordMessage{}
	assert.Error(t, missing.Validate())
}

func TestChangePasswordHandler(t *testing.T) {
	gateway := &mockGateway{
		changeResult: &auth.ChangePasswordResult{Success: true, Message: "Password changed successfully"},
	}
	handler := auth.NewChangePasswordHandler(gateway, staticToken("tok-1"))

	var got *auth.ChangePasswordResponse
	err := handler.Execute(context.Background(), auth.ChangePasswordMessage{
		CurrentPassword:         "old-pass",
		NewPassword:             "new-pass-123",
		NewPasswordConfirmation: "new-pass-123",
		OnResponse:              func(resp *auth.ChangePasswordResponse) { got = resp },
	})

	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Success)
	assert.Equal(t, "Password changed successfully", got.Message)
}

func TestChangePasswordHandlerBackendRejection(t *testing.T) {
	gateway := &mockGateway{
		changeResult: &auth.ChangePasswordResult{
			Message: "Failed to change password",
			Errors:  map[string]any{"current_password": "is incorrect"},
		},
	}
	handler := auth.NewChangePasswordHandler(gateway, staticToken("tok-1"))

	var got *auth.ChangePasswordResponse
	err := handler.Execute(context.Background(), auth.ChangePasswordMessage{
		CurrentPassword:         "wrong",
		NewPassword:             "new-pass-123",
		NewPasswordConfirmation: "new-pass-123",
		OnResponse:              func(resp *auth.ChangePasswordResponse) { got = resp },
	})

	// a backend rejection is a response, not an execution error
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.Success)
	assert.Contains(t, got.Errors, "current_password")
}

func TestChangePasswordHandlerRequiresSession(t *testing.T) {
	handler := auth.NewChangePasswordHandler(&mockGateway{}, staticToken(""))

	err := handler.Execute(context.Background(), auth.ChangePasswordMessage{
		CurrentPassword:         "old-pass",
		NewPassword:             "new-pass-123",
		NewPasswordConfirmation: "new-pass-123",
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrNotAuthenticated)
}

func TestChangePasswordHandlerInvalidPayload(t *testing.T) {
	handler := auth.NewChangePasswordHandler(&mockGateway{}, staticToken("tok-1"))

	err := handler.Execute(context.Background(), auth.ChangePasswordMessage{
		CurrentPassword:         "old-pass",
		NewPassword:             "new-pass-123",
		NewPasswordConfirmation: "does-not-match",
	})

	require.Error(t, err)

	var rich *goerrors.Error
	require.ErrorAs(t, err, &rich)
	assert.Equal(t, goerrors.CategoryValidation, rich.Category)
}

func TestChangePasswordHandlerCancelledContext(t *testing.T) {
	handler := auth.NewChangePasswordHandler(&mockGateway{}, staticToken("tok-1"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := handler.Execute(ctx, auth.ChangePasswordMessage{
		CurrentPassword:         "old-pass",
		NewPassword:             "new-pass-123",
		NewPasswordConfirmation: "new-pass-123",
	})
	assert.Error(t, err)
}
