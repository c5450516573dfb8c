package aws

import (
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/redshift"
	"github.com/aws/aws-sdk-go/service/redshift/redshiftiface"
)

const (
	// StatusAbsent is reported when the cluster does not exist. The string
	// matches what operators have historically seen from this tool; the
	// constant keeps it distinct from any status Redshift itself reports.
	StatusAbsent = "unknown"

	// StatusAvailable is the Redshift status of a cluster ready for use.
	StatusAvailable = "available"

	// clusterTypeMultiNode is the cluster type for which NumberOfNodes is
	// valid on CreateCluster.
	clusterTypeMultiNode = "multi-node"
)

// Redshift manages the warehouse cluster through the Redshift control plane.
type Redshift struct {
	client redshiftiface.RedshiftAPI
}

func NewRedshift(region, key, secret string) *Redshift {
	return &Redshift{client: redshift.New(newSession(region, key, secret))}
}

// ClusterParams are the create-cluster parameters taken from the warehouse
// config file.
type ClusterParams struct {
	ClusterType        string
	NodeType           string
	NumNodes           int64
	DBName             string
	ClusterIdentifier  string
	MasterUsername     string
	MasterUserPassword string
	RoleARN            string
}

// ClusterStatus returns the current status of the cluster, or StatusAbsent
// if it does not exist. Absence is a normal outcome, not an error.
func (c *Redshift) ClusterStatus(id string) (string, error) {
	out, err := c.client.DescribeClusters(&redshift.DescribeClustersInput{
		ClusterIdentifier: aws.String(id),
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == redshift.ErrCodeClusterNotFoundFault {
			return StatusAbsent, nil
		}
		return "", fmt.Errorf("describing cluster %s: %v", id, err)
	}
	if len(out.Clusters) == 0 {
		return StatusAbsent, nil
	}
	return aws.StringValue(out.Clusters[0].ClusterStatus), nil
}

// CreateCluster issues the create-cluster call. NumberOfNodes is only set for
// multi-node clusters; Redshift rejects it on single-node creates.
func (c *Redshift) CreateCluster(p ClusterParams) error {
	in := &redshift.CreateClusterInput{
		ClusterType:        aws.String(p.ClusterType),
		NodeType:           aws.String(p.NodeType),
		DBName:             aws.String(p.DBName),
		ClusterIdentifier:  aws.String(p.ClusterIdentifier),
		MasterUsername:     aws.String(p.MasterUsername),
		MasterUserPassword: aws.String(p.MasterUserPassword),
		IamRoles:           []*string{aws.String(p.RoleARN)},
	}
	if p.ClusterType == clusterTypeMultiNode {
		in.NumberOfNodes = aws.Int64(p.NumNodes)
	}
	if _, err := c.client.CreateCluster(in); err != nil {
		return fmt.Errorf("creating cluster %s: %v", p.ClusterIdentifier, err)
	}
	return nil
}

// DeleteCluster issues the delete-cluster call, skipping the final snapshot.
func (c *Redshift) DeleteCluster(id string) error {
	_, err := c.client.DeleteCluster(&redshift.DeleteClusterInput{
		ClusterIdentifier:        aws.String(id),
		SkipFinalClusterSnapshot: aws.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("deleting cluster %s: %v", id, err)
	}
	return nil
}
