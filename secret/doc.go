// Package secret resolves credentials referenced from configuration.
//
// Configuration values may contain ${VAR} references, which are expanded
// strictly (a missing variable is an error), and secret references of the
// form:
//
//	secretref:<provider>:<ref>
//
// Built-in providers are "env" (secretref:env:CHATGUARD_JWT_SECRET) and
// "file" (secretref:file:/run/secrets/api-key). References may appear as the
// whole value or inline ("Bearer secretref:env:TOKEN").
package secret
