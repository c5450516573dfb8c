package aws

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/iam"
	"github.com/aws/aws-sdk-go/service/iam/iamiface"
)

const (
	// s3ReadOnlyPolicyARN is the managed policy attached to the warehouse
	// role so Redshift can COPY from S3.
	s3ReadOnlyPolicyARN = "arn:aws:iam::aws:policy/AmazonS3ReadOnlyAccess"

	roleDescription = "Allows Redshift clusters to call AWS services on your behalf."

	redshiftServicePrincipal = "redshift.amazonaws.com"
)

// ErrRoleNotFound is returned by GetRole when the role does not exist. An
// absent role is an expected outcome, not a call failure.
var ErrRoleNotFound = errors.New("IAM role does not exist")

// IAM manages the warehouse access role.
type IAM struct {
	client iamiface.IAMAPI
}

func NewIAM(region, key, secret string) *IAM {
	return &IAM{client: iam.New(newSession(region, key, secret))}
}

type policyStatement struct {
	Action    string            `json:"Action"`
	Effect    string            `json:"Effect"`
	Principal map[string]string `json:"Principal"`
}

type policyDocument struct {
	Version   string            `json:"Version"`
	Statement []policyStatement `json:"Statement"`
}

func assumeRolePolicyDocument() (string, error) {
	doc := policyDocument{
		Version: "2012-10-17",
		Statement: []policyStatement{{
			Action:    "sts:AssumeRole",
			Effect:    "Allow",
			Principal: map[string]string{"Service": redshiftServicePrincipal},
		}},
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshalling assume-role policy document: %v", err)
	}
	return string(b), nil
}

// GetRole returns the ARN of the named role, or ErrRoleNotFound.
func (c *IAM) GetRole(name string) (string, error) {
	out, err := c.client.GetRole(&iam.GetRoleInput{
		RoleName: aws.String(name),
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == iam.ErrCodeNoSuchEntityException {
			return "", ErrRoleNotFound
		}
		return "", fmt.Errorf("getting IAM role %s: %v", name, err)
	}
	return aws.StringValue(out.Role.Arn), nil
}

// CreateRole creates the warehouse role with a trust policy allowing the
// Redshift service principal to assume it, and returns the new role's ARN.
func (c *IAM) CreateRole(name string) (string, error) {
	policy, err := assumeRolePolicyDocument()
	if err != nil {
		return "", err
	}
	out, err := c.client.CreateRole(&iam.CreateRoleInput{
		Path:                     aws.String("/"),
		RoleName:                 aws.String(name),
		Description:              aws.String(roleDescription),
		AssumeRolePolicyDocument: aws.String(policy),
	})
	if err != nil {
		return "", fmt.Errorf("creating IAM role %s: %v", name, err)
	}
	return aws.StringValue(out.Role.Arn), nil
}

// AttachRolePolicy attaches the S3 read-only managed policy to the role.
func (c *IAM) AttachRolePolicy(name string) error {
	_, err := c.client.AttachRolePolicy(&iam.AttachRolePolicyInput{
		RoleName:  aws.String(name),
		PolicyArn: aws.String(s3ReadOnlyPolicyARN),
	})
	if err != nil {
		return fmt.Errorf("attaching policy %s to IAM role %s: %v", s3ReadOnlyPolicyARN, name, err)
	}
	return nil
}

// DetachRolePolicy detaches the S3 read-only managed policy. Required before
// the role can be deleted.
func (c *IAM) DetachRolePolicy(name string) error {
	_, err := c.client.DetachRolePolicy(&iam.DetachRolePolicyInput{
		RoleName:  aws.String(name),
		PolicyArn: aws.String(s3ReadOnlyPolicyARN),
	})
	if err != nil {
		return fmt.Errorf("detaching policy %s from IAM role %s: %v", s3ReadOnlyPolicyARN, name, err)
	}
	return nil
}

// DeleteRole deletes the named role.
func (c *IAM) DeleteRole(name string) error {
	_, err := c.client.DeleteRole(&iam.DeleteRoleInput{
		RoleName: aws.String(name),
	})
	if err != nil {
		return fmt.Errorf("deleting IAM role %s: %v", name, err)
	}
	return nil
}
