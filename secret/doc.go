// Package secret resolves configuration values that must not live in
// configuration files.
//
// Two forms are recognised:
//   - Environment references, `${VAR}`, expanded strictly: a missing
//     variable is an error rather than an empty string (see ExpandEnvStrict).
//   - Secret references, `secretref:<provider>:<ref>`, resolved through a
//     Provider. EnvProvider and FileProvider are built in.
//
// A reference may make up the whole value or appear inline:
//
//	auth.token:      secretref:file:/run/secrets/rehabdir-token
//	api.headers.X-Api-Key: "secretref:env:REHABDIR_API_KEY"
package secret
