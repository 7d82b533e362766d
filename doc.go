// Package authclient implements the client half of the platform's
// authentication: a process-wide session store that manages a bearer token
// across three persistence tiers and keeps co-operating processes in sync.
//
// Session lifecycle:
//   - SessionStore is constructed once at application start, hydrates itself
//     from the persisted tiers, and is injected wherever the session is needed
//     (route guards, HTTP clients). There is no package-level singleton.
//   - Login exchanges credentials for a token and a resolved user, writes
//     through every tier, and announces the change to sibling processes.
//     Logout tears everything down and is safe to call repeatedly.
//
// Persistence tiers:
//   - The cookie jar is the cross-subdomain source of truth, the durable store
//     backs "remember me" sessions, and the ephemeral store holds everything
//     else. TokenPersistence reads them in that priority order and promotes
//     hits back into the cookie jar.
//
// Synchronization:
//   - Broadcaster publishes login/logout messages through a watchable store so
//     other processes converge without polling. The reconciliation loop is the
//     safety net: it periodically re-reads the persisted token and adopts
//     external changes, or forces re-authentication when the token vanished.
package authclient
