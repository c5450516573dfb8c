package warehouse

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"k8s.io/apimachinery/pkg/util/clock"

	dwaws "github.com/sparkify/dwhctl/pkg/aws"
	"github.com/sparkify/dwhctl/pkg/config"
)

const (
	// DefaultPollInterval is how long the provisioner waits between
	// cluster status checks.
	DefaultPollInterval = 10 * time.Second

	// DefaultMaxPollAttempts bounds how many status checks a single wait
	// performs before giving up.
	DefaultMaxPollAttempts = 10
)

// ErrWaitTimeout is returned when the poll attempt budget is exhausted before
// the cluster reaches the target status.
var ErrWaitTimeout = errors.New("timed out waiting for cluster status")

// RoleManager is the IAM surface the provisioner needs.
type RoleManager interface {
	GetRole(name string) (string, error)
	CreateRole(name string) (string, error)
	AttachRolePolicy(name string) error
	DetachRolePolicy(name string) error
	DeleteRole(name string) error
}

// ClusterManager is the Redshift surface the provisioner needs.
type ClusterManager interface {
	ClusterStatus(id string) (string, error)
	CreateCluster(p dwaws.ClusterParams) error
	DeleteCluster(id string) error
}

// Provisioner drives the warehouse cluster and its access role through their
// lifecycles. One operation per invocation; all state lives in AWS.
type Provisioner struct {
	logger   logrus.FieldLogger
	roles    RoleManager
	clusters ClusterManager
	cfg      *config.Config

	clock           clock.Clock
	pollInterval    time.Duration
	maxPollAttempts int
}

func New(logger logrus.FieldLogger, roles RoleManager, clusters ClusterManager, cfg *config.Config) *Provisioner {
	return &Provisioner{
		logger:          logger,
		roles:           roles,
		clusters:        clusters,
		cfg:             cfg,
		clock:           clock.RealClock{},
		pollInterval:    DefaultPollInterval,
		maxPollAttempts: DefaultMaxPollAttempts,
	}
}

// Status returns the current cluster status, dwaws.StatusAbsent if the
// cluster does not exist.
func (p *Provisioner) Status(ctx context.Context) (string, error) {
	return p.clusters.ClusterStatus(p.cfg.ClusterIdentifier)
}

// EnsureRole returns the ARN of the warehouse access role, creating the role
// and attaching the S3 read-only policy if it does not exist yet. An existing
// role is reused untouched.
func (p *Provisioner) EnsureRole(ctx context.Context) (string, error) {
	arn, err := p.roles.GetRole(p.cfg.RoleName)
	if err == nil {
		p.logger.Infof("IAM role %s already exists", p.cfg.RoleName)
		return arn, nil
	}
	if !errors.Is(err, dwaws.ErrRoleNotFound) {
		return "", err
	}

	p.logger.Infof("creating IAM role %s", p.cfg.RoleName)
	arn, err = p.roles.CreateRole(p.cfg.RoleName)
	if err != nil {
		return "", err
	}
	p.logger.Infof("attaching S3 read-only policy to IAM role %s", p.cfg.RoleName)
	if err := p.roles.AttachRolePolicy(p.cfg.RoleName); err != nil {
		return "", err
	}
	return arn, nil
}

// Create ensures the access role exists, then creates the cluster if it is
// absent and waits for it to become available. Any other current status makes
// the create a no-op.
func (p *Provisioner) Create(ctx context.Context) error {
	arn, err := p.EnsureRole(ctx)
	if err != nil {
		return err
	}

	status, err := p.clusters.ClusterStatus(p.cfg.ClusterIdentifier)
	if err != nil {
		return err
	}
	if status != dwaws.StatusAbsent {
		p.logger.Infof("cluster %s already exists with status %s, nothing to create", p.cfg.ClusterIdentifier, status)
		return nil
	}

	p.logger.Infof("creating Redshift cluster %s", p.cfg.ClusterIdentifier)
	err = p.clusters.CreateCluster(dwaws.ClusterParams{
		ClusterType:        p.cfg.ClusterType,
		NodeType:           p.cfg.NodeType,
		NumNodes:           p.cfg.NumNodes,
		DBName:             p.cfg.DBName,
		ClusterIdentifier:  p.cfg.ClusterIdentifier,
		MasterUsername:     p.cfg.MasterUsername,
		MasterUserPassword: p.cfg.MasterUserPassword,
		RoleARN:            arn,
	})
	if err != nil {
		return err
	}
	return p.WaitForClusterStatus(ctx, dwaws.StatusAvailable)
}

// Delete deletes the cluster if it is available and waits for it to be gone.
// With withRole set it also detaches the managed policy and deletes the
// access role once no cluster references it.
func (p *Provisioner) Delete(ctx context.Context, withRole bool) error {
	status, err := p.clusters.ClusterStatus(p.cfg.ClusterIdentifier)
	if err != nil {
		return err
	}
	switch status {
	case dwaws.StatusAvailable:
		p.logger.Infof("deleting Redshift cluster %s", p.cfg.ClusterIdentifier)
		if err := p.clusters.DeleteCluster(p.cfg.ClusterIdentifier); err != nil {
			return err
		}
		if err := p.WaitForClusterStatus(ctx, dwaws.StatusAbsent); err != nil {
			return err
		}
	case dwaws.StatusAbsent:
		p.logger.Infof("cluster %s does not exist, nothing to delete", p.cfg.ClusterIdentifier)
	default:
		// Mid-transition clusters (creating, deleting, ...) are left
		// alone; re-run once the cluster settles.
		p.logger.Infof("cluster %s has status %s, skipping delete", p.cfg.ClusterIdentifier, status)
		return nil
	}

	if !withRole {
		return nil
	}
	p.logger.Infof("detaching policy and deleting IAM role %s", p.cfg.RoleName)
	if err := p.roles.DetachRolePolicy(p.cfg.RoleName); err != nil {
		return err
	}
	return p.roles.DeleteRole(p.cfg.RoleName)
}

// WaitForClusterStatus polls the cluster status until it equals target,
// making at most maxPollAttempts describe calls with pollInterval between
// them. Exhausting the budget returns ErrWaitTimeout wrapping the last
// observed status; cancelling ctx stops the wait immediately.
func (p *Provisioner) WaitForClusterStatus(ctx context.Context, target string) error {
	p.logger.Infof("waiting for cluster %s to reach status %s", p.cfg.ClusterIdentifier, target)

	var status string
	for attempt := 0; attempt < p.maxPollAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-p.clock.After(p.pollInterval):
			}
		}

		var err error
		status, err = p.clusters.ClusterStatus(p.cfg.ClusterIdentifier)
		if err != nil {
			return err
		}
		p.logger.Infof("cluster %s status: %s", p.cfg.ClusterIdentifier, status)
		if status == target {
			return nil
		}
	}
	return fmt.Errorf("%w: cluster %s still %s after %d checks", ErrWaitTimeout, p.cfg.ClusterIdentifier, status, p.maxPollAttempts)
}
