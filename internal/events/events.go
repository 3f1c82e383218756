// Package events decodes the messages that drive rsjoin: fleet lifecycle
// notifications delivered over SNS and node-ready messages delivered over SQS.
package events

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-lambda-go/events"

	"github.com/imamik/rsjoin/internal/cluster"
	"github.com/imamik/rsjoin/internal/gate"
	"github.com/imamik/rsjoin/internal/provisioner"
)

// Node-ready message attributes.
const (
	AttrRole        = "Role"
	AttrProject     = "Project"
	AttrEnvironment = "Environment"
	AttrSlot        = "ID"
)

// TestNotificationEvent is sent by the fleet controller when a hook is created.
const TestNotificationEvent = "autoscaling:TEST_NOTIFICATION"

// ErrTestNotification marks a lifecycle message that carries no instance.
var ErrTestNotification = errors.New("lifecycle test notification")

// lifecycleMessage is the SNS body of a lifecycle hook notification.
type lifecycleMessage struct {
	Event                string `json:"Event"`
	EC2InstanceID        string `json:"EC2InstanceId"`
	LifecycleHookName    string `json:"LifecycleHookName"`
	AutoScalingGroupName string `json:"AutoScalingGroupName"`
	LifecycleActionToken string `json:"LifecycleActionToken"`
	LifecycleTransition  string `json:"LifecycleTransition"`
	NotificationMetadata string `json:"NotificationMetadata"`
}

// DecodeLifecycle parses one lifecycle notification body.
func DecodeLifecycle(body string) (provisioner.LifecycleEvent, error) {
	var msg lifecycleMessage
	if err := json.Unmarshal([]byte(body), &msg); err != nil {
		return provisioner.LifecycleEvent{}, fmt.Errorf("failed to decode lifecycle message: %w", err)
	}
	if msg.Event == TestNotificationEvent {
		return provisioner.LifecycleEvent{}, ErrTestNotification
	}

	ev := provisioner.LifecycleEvent{
		InstanceID: msg.EC2InstanceID,
		HookName:   msg.LifecycleHookName,
		GroupName:  msg.AutoScalingGroupName,
		Token:      msg.LifecycleActionToken,
	}
	if msg.NotificationMetadata == "" {
		return ev, &cluster.ConfigError{Field: "NotificationMetadata", Reason: "lifecycle hook has no metadata"}
	}
	if err := json.Unmarshal([]byte(msg.NotificationMetadata), &ev.Metadata); err != nil {
		return ev, fmt.Errorf("failed to decode notification metadata: %w", err)
	}
	return ev, nil
}

// LifecycleFromSNS decodes every record of an SNS event. A record that fails
// to decode but names an instance is still returned, so that its lifecycle
// action can be abandoned.
func LifecycleFromSNS(event events.SNSEvent) ([]provisioner.LifecycleEvent, []error) {
	var (
		out  []provisioner.LifecycleEvent
		errs []error
	)
	for _, record := range event.Records {
		ev, err := DecodeLifecycle(record.SNS.Message)
		if err != nil {
			errs = append(errs, fmt.Errorf("record %s: %w", record.SNS.MessageID, err))
			if !errors.Is(err, ErrTestNotification) && ev.InstanceID != "" {
				out = append(out, ev)
			}
			continue
		}
		out = append(out, ev)
	}
	return out, errs
}

// DecodeTrigger reads a node-ready trigger from SQS message attributes.
func DecodeTrigger(msg events.SQSMessage) (gate.Trigger, error) {
	get := func(name string) string {
		attr, ok := msg.MessageAttributes[name]
		if !ok || attr.StringValue == nil {
			return ""
		}
		return *attr.StringValue
	}

	trigger := gate.Trigger{
		Identity: cluster.Identity{
			Project:     get(AttrProject),
			Environment: get(AttrEnvironment),
			Role:        get(AttrRole),
		},
		Slot:      get(AttrSlot),
		MessageID: msg.MessageId,
	}
	if err := trigger.Identity.Validate(); err != nil {
		return trigger, err
	}
	return trigger, nil
}

// BatchFailures lists message IDs to redeliver in an SQS batch response.
func BatchFailures(ids ...string) events.SQSEventResponse {
	resp := events.SQSEventResponse{}
	for _, id := range ids {
		resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{ItemIdentifier: id})
	}
	return resp
}
