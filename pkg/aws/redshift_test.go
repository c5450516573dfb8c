package aws

import (
	"testing"

	awssdk "github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/redshift"
	"github.com/aws/aws-sdk-go/service/redshift/redshiftiface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRedshiftAPI struct {
	redshiftiface.RedshiftAPI

	describeOut *redshift.DescribeClustersOutput
	describeErr error

	createIn *redshift.CreateClusterInput
	deleteIn *redshift.DeleteClusterInput
}

func (f *fakeRedshiftAPI) DescribeClusters(in *redshift.DescribeClustersInput) (*redshift.DescribeClustersOutput, error) {
	return f.describeOut, f.describeErr
}

func (f *fakeRedshiftAPI) CreateCluster(in *redshift.CreateClusterInput) (*redshift.CreateClusterOutput, error) {
	f.createIn = in
	return &redshift.CreateClusterOutput{}, nil
}

func (f *fakeRedshiftAPI) DeleteCluster(in *redshift.DeleteClusterInput) (*redshift.DeleteClusterOutput, error) {
	f.deleteIn = in
	return &redshift.DeleteClusterOutput{}, nil
}

func TestClusterStatusReportsRedshiftStatus(t *testing.T) {
	fake := &fakeRedshiftAPI{
		describeOut: &redshift.DescribeClustersOutput{
			Clusters: []*redshift.Cluster{
				{ClusterStatus: awssdk.String("creating")},
			},
		},
	}
	client := &Redshift{client: fake}

	status, err := client.ClusterStatus("dwhCluster")
	require.NoError(t, err)
	assert.Equal(t, "creating", status)
}

func TestClusterStatusNotFoundIsAbsent(t *testing.T) {
	fake := &fakeRedshiftAPI{
		describeErr: awserr.New(redshift.ErrCodeClusterNotFoundFault, "cluster not found", nil),
	}
	client := &Redshift{client: fake}

	status, err := client.ClusterStatus("dwhCluster")
	require.NoError(t, err)
	assert.Equal(t, StatusAbsent, status)
}

func TestClusterStatusOtherFailurePropagates(t *testing.T) {
	fake := &fakeRedshiftAPI{
		describeErr: awserr.New("Throttling", "rate exceeded", nil),
	}
	client := &Redshift{client: fake}

	_, err := client.ClusterStatus("dwhCluster")
	assert.Error(t, err)
}

func TestCreateClusterMultiNodeSetsNodeCount(t *testing.T) {
	fake := &fakeRedshiftAPI{}
	client := &Redshift{client: fake}

	err := client.CreateCluster(ClusterParams{
		ClusterType:        "multi-node",
		NodeType:           "dc2.large",
		NumNodes:           4,
		DBName:             "dwh",
		ClusterIdentifier:  "dwhCluster",
		MasterUsername:     "dwhuser",
		MasterUserPassword: "Passw0rd",
		RoleARN:            "arn:aws:iam::123456789012:role/dwhRole",
	})
	require.NoError(t, err)

	in := fake.createIn
	require.NotNil(t, in)
	assert.Equal(t, int64(4), awssdk.Int64Value(in.NumberOfNodes))
	assert.Equal(t, "dc2.large", awssdk.StringValue(in.NodeType))
	assert.Equal(t, "dwh", awssdk.StringValue(in.DBName))
	require.Len(t, in.IamRoles, 1)
	assert.Equal(t, "arn:aws:iam::123456789012:role/dwhRole", awssdk.StringValue(in.IamRoles[0]))
}

func TestCreateClusterSingleNodeOmitsNodeCount(t *testing.T) {
	fake := &fakeRedshiftAPI{}
	client := &Redshift{client: fake}

	err := client.CreateCluster(ClusterParams{
		ClusterType:        "single-node",
		NodeType:           "dc2.large",
		NumNodes:           4,
		DBName:             "dwh",
		ClusterIdentifier:  "dwhCluster",
		MasterUsername:     "dwhuser",
		MasterUserPassword: "Passw0rd",
		RoleARN:            "arn:aws:iam::123456789012:role/dwhRole",
	})
	require.NoError(t, err)
	require.NotNil(t, fake.createIn)
	assert.Nil(t, fake.createIn.NumberOfNodes)
}

func TestDeleteClusterSkipsFinalSnapshot(t *testing.T) {
	fake := &fakeRedshiftAPI{}
	client := &Redshift{client: fake}

	require.NoError(t, client.DeleteCluster("dwhCluster"))
	require.NotNil(t, fake.deleteIn)
	assert.Equal(t, "dwhCluster", awssdk.StringValue(fake.deleteIn.ClusterIdentifier))
	assert.True(t, awssdk.BoolValue(fake.deleteIn.SkipFinalClusterSnapshot))
}
