// Package secret resolves secret references in configuration values.
//
// A value is first expanded strictly against the environment (see
// ExpandEnvStrict), then any reference of the form
//
//	secretref:<provider>:<ref>
//
// is replaced by what the named provider returns. Two providers ship with
// the package: "env" reads a variable and "file" reads a mounted file such as
// a Docker or Kubernetes secret.
//
//	REDIS_URL=redis://:secretref:file:/run/secrets/redis_password@cache:6379/0
//	AUTH_JWT_SECRET=secretref:env:NEUROSCAN_JWT_SECRET
package secret
