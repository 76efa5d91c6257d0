// Package identity is the account and access core of the ElimuConnect school
// platform. It owns how an account is registered, vetted by an administrator,
// authenticated and then recognised on every later request.
//
// Account lifecycle:
//   - Registrar creates accounts from one of four role specific requests
//     (AdminRegistration, TeacherRegistration, StudentRegistration,
//     ParentRegistration). Admin accounts start active; every other role waits
//     for approval.
//   - Approvals lists pending accounts, activates them or rejects them.
//     Rejection deletes the account; there is no retained "rejected" state.
//   - Authenticator verifies credentials, applies the lockout policy (five
//     consecutive failures lock the account for one hour by default) and issues
//     a signed session token.
//
// Session tokens:
//   - TokenService signs HS256 tokens carrying the account id and role. Tokens
//     are never stored and cannot be revoked before they expire.
//   - Gate verifies a token and checks the role claim against a RoleSet without
//     touching the credential store.
//
// Side effects:
//   - Notifier receives registration, approval and rejection messages. Delivery
//     is asynchronous and failures are logged, never returned.
//   - ActivitySink receives audit events for every state change and login
//     attempt.
package identity
