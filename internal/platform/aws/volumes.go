package aws

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/imamik/rsjoin/internal/provisioner"
)

// EC2API is the subset of the EC2 client used by Volumes.
type EC2API interface {
	DescribeSnapshots(ctx context.Context, params *ec2.DescribeSnapshotsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeSnapshotsOutput, error)
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
	CreateVolume(ctx context.Context, params *ec2.CreateVolumeInput, optFns ...func(*ec2.Options)) (*ec2.CreateVolumeOutput, error)
}

// Volumes implements provisioner.Volumes on EC2.
type Volumes struct {
	api EC2API
}

var _ provisioner.Volumes = (*Volumes)(nil)

// NewVolumes returns a Volumes adapter.
func NewVolumes(api EC2API) *Volumes {
	return &Volumes{api: api}
}

// Snapshots returns the account's snapshots carrying every tag in tags.
func (v *Volumes) Snapshots(ctx context.Context, tags map[string]string) ([]provisioner.Snapshot, error) {
	var snapshots []provisioner.Snapshot
	paginator := ec2.NewDescribeSnapshotsPaginator(v.api, &ec2.DescribeSnapshotsInput{
		OwnerIds: []string{"self"},
		Filters:  tagFilters(tags),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to describe snapshots: %w", err)
		}
		for _, s := range page.Snapshots {
			snapshots = append(snapshots, provisioner.Snapshot{
				ID:        aws.ToString(s.SnapshotId),
				StartTime: aws.ToTime(s.StartTime),
			})
		}
	}
	return snapshots, nil
}

// InstanceZone returns the availability zone instanceID runs in.
func (v *Volumes) InstanceZone(ctx context.Context, instanceID string) (string, error) {
	out, err := v.api.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: []string{instanceID},
	})
	if err != nil {
		return "", fmt.Errorf("failed to describe instance %s: %w", instanceID, err)
	}
	for _, r := range out.Reservations {
		for _, inst := range r.Instances {
			if inst.Placement != nil && inst.Placement.AvailabilityZone != nil {
				return *inst.Placement.AvailabilityZone, nil
			}
		}
	}
	return "", fmt.Errorf("instance %s not found", instanceID)
}

// CreateVolume restores req.SnapshotID into a new volume.
func (v *Volumes) CreateVolume(ctx context.Context, req provisioner.VolumeRequest) (string, error) {
	input := &ec2.CreateVolumeInput{
		AvailabilityZone: aws.String(req.Zone),
		SnapshotId:       aws.String(req.SnapshotID),
		VolumeType:       ec2types.VolumeType(req.VolumeType),
		Encrypted:        aws.Bool(req.Encrypted),
	}
	if req.IOPS > 0 {
		input.Iops = aws.Int32(req.IOPS)
	}
	if len(req.Tags) > 0 {
		input.TagSpecifications = []ec2types.TagSpecification{{
			ResourceType: ec2types.ResourceTypeVolume,
			Tags:         ec2Tags(req.Tags),
		}}
	}
	out, err := v.api.CreateVolume(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to create volume from %s: %w", req.SnapshotID, err)
	}
	return aws.ToString(out.VolumeId), nil
}

func tagFilters(tags map[string]string) []ec2types.Filter {
	filters := make([]ec2types.Filter, 0, len(tags))
	for _, k := range sortedKeys(tags) {
		filters = append(filters, ec2types.Filter{
			Name:   aws.String("tag:" + k),
			Values: []string{tags[k]},
		})
	}
	return filters
}

func ec2Tags(tags map[string]string) []ec2types.Tag {
	out := make([]ec2types.Tag, 0, len(tags))
	for _, k := range sortedKeys(tags) {
		out = append(out, ec2types.Tag{Key: aws.String(k), Value: aws.String(tags[k])})
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
