package aws

import (
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
)

// newSession builds a session from explicit credentials and region, the way
// the warehouse config file provides them. No shared-config fallback.
func newSession(region, key, secret string) *session.Session {
	return session.Must(session.NewSession(
		aws.NewConfig().
			WithRegion(region).
			WithCredentials(credentials.NewStaticCredentials(key, secret, "")),
	))
}
