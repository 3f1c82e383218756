package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	lambdaevents "github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sfn"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/rsjoin/internal/cluster"
	"github.com/imamik/rsjoin/internal/config"
	"github.com/imamik/rsjoin/internal/convergence"
	"github.com/imamik/rsjoin/internal/gate"
	"github.com/imamik/rsjoin/internal/journal"
	"github.com/imamik/rsjoin/internal/logging"
	awsInternal "github.com/imamik/rsjoin/internal/platform/aws"
	"github.com/imamik/rsjoin/internal/platform/consul"
	redisInternal "github.com/imamik/rsjoin/internal/platform/redis"
	"github.com/imamik/rsjoin/internal/provisioner"
	rstesting "github.com/imamik/rsjoin/internal/testing"
)

// saveAndRestoreFactories restores every factory variable after the test.
func saveAndRestoreFactories(t *testing.T) {
	t.Helper()
	origDotEnv := loadDotEnv
	origLoadConfig := loadConfig
	origNewLogger := newLogger
	origLoadClients := loadClients
	origStartLambda := startLambda
	origServeMetrics := serveMetrics
	origReadFile := readFile
	origStdout := stdout
	origRecentRuns := newRecentRuns
	t.Cleanup(func() {
		loadDotEnv = origDotEnv
		loadConfig = origLoadConfig
		newLogger = origNewLogger
		loadClients = origLoadClients
		startLambda = origStartLambda
		serveMetrics = origServeMetrics
		readFile = origReadFile
		stdout = origStdout
		newRecentRuns = origRecentRuns
	})

	loadDotEnv = func(...string) error { return nil }
	newLogger = func(logging.Options) (logr.Logger, error) { return logr.Discard(), nil }
	loadClients = func(context.Context, string) (*awsInternal.Clients, error) {
		cfg := aws.Config{Region: "us-west-2"}
		return &awsInternal.Clients{
			SSM:    ssm.NewFromConfig(cfg),
			SFN:    sfn.NewFromConfig(cfg),
			Config: cfg,
		}, nil
	}
	startLambda = func(any) {}
}

func testConfig() *config.Config {
	return &config.Config{
		Region:   "us-west-2",
		Registry: config.RegistryConfig{Backend: config.RegistrySSM},
		Oracle: config.OracleConfig{
			Backend:         config.OracleStepFunctions,
			StateMachineARN: "arn:aws:states:us-west-2:123456789012:stateMachine:rsjoin",
		},
		Provisioner: config.ProvisionerConfig{AutomationDocument: "Bootstrap", QueueURL: "https://sqs/q"},
		Convergence: config.ConvergenceConfig{MemberPort: 27017},
		Timeouts:    config.LoadTimeouts(),
	}
}

func useConfig(cfg *config.Config) {
	loadConfig = func(string) (*config.Config, error) { return cfg, nil }
}

type fakeAdmitter struct {
	mu       sync.Mutex
	triggers []gate.Trigger
	budgets  []gate.Budget
	results  map[string]error
}

func (f *fakeAdmitter) Admit(_ context.Context, trigger gate.Trigger, budget gate.Budget) (gate.Decision, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.triggers = append(f.triggers, trigger)
	f.budgets = append(f.budgets, budget)
	if err := f.results[trigger.Slot]; err != nil {
		if cluster.IsDeferred(err) {
			return gate.Decision{Outcome: gate.Deferred}, err
		}
		return gate.Decision{}, err
	}
	report := convergence.Report{Result: convergence.ResultSuccess}
	return gate.Decision{Outcome: gate.Started, RunID: "run-1", Report: &report}, nil
}

func sqsMessage(id, project, env, role, slot string) lambdaevents.SQSMessage {
	attr := func(v string) lambdaevents.SQSMessageAttribute {
		return lambdaevents.SQSMessageAttribute{StringValue: aws.String(v), DataType: "String"}
	}
	attrs := map[string]lambdaevents.SQSMessageAttribute{
		"Project":     attr(project),
		"Environment": attr(env),
		"Role":        attr(role),
		"ID":          attr(slot),
	}
	return lambdaevents.SQSMessage{MessageId: id, MessageAttributes: attrs}
}

func TestGateHandler_Handle(t *testing.T) {
	t.Parallel()
	admitter := &fakeAdmitter{results: map[string]error{
		"1": fmt.Errorf("busy: %w", cluster.ErrDeferred),
		"2": cluster.Transport("list active runs", errors.New("throttled")),
	}}
	h := &GateHandler{Gate: admitter, Buffer: time.Second}

	deadline := time.Now().Add(time.Minute)
	ctx, cancel := context.WithDeadline(context.Background(), deadline)
	defer cancel()

	resp, err := h.Handle(ctx, lambdaevents.SQSEvent{Records: []lambdaevents.SQSMessage{
		sqsMessage("m0", "MongoDB", "Test", "rsmember", "0"),
		sqsMessage("m1", "MongoDB", "Test", "rsmember", "1"),
		sqsMessage("m2", "MongoDB", "Test", "rsmember", "2"),
		sqsMessage("bad", "MongoDB", "", "rsmember", "3"),
	}})
	require.NoError(t, err)

	var failed []string
	for _, f := range resp.BatchItemFailures {
		failed = append(failed, f.ItemIdentifier)
	}
	assert.Equal(t, []string{"m1", "m2"}, failed, "deferred and failed messages are redelivered")

	require.Len(t, admitter.triggers, 3, "malformed message never reaches the gate")
	assert.Equal(t, "MongoDB", admitter.triggers[0].Identity.Project)
	assert.Equal(t, "m0", admitter.triggers[0].MessageID)
	assert.Equal(t, gate.Budget{Deadline: deadline, Buffer: time.Second}, admitter.budgets[0])
}

func TestGateHandler_NoDeadline(t *testing.T) {
	t.Parallel()
	admitter := &fakeAdmitter{}
	h := &GateHandler{Gate: admitter}

	resp, err := h.Handle(context.Background(), lambdaevents.SQSEvent{Records: []lambdaevents.SQSMessage{
		sqsMessage("m0", "p", "e", "r", "0"),
	}})
	require.NoError(t, err)
	assert.Empty(t, resp.BatchItemFailures)
	assert.True(t, admitter.budgets[0].Deadline.IsZero())
}

type fakeProvisioner struct {
	events []provisioner.LifecycleEvent
	err    error
}

func (f *fakeProvisioner) Provision(_ context.Context, ev provisioner.LifecycleEvent) error {
	f.events = append(f.events, ev)
	return f.err
}

func snsRecord(id, message string) lambdaevents.SNSEventRecord {
	return lambdaevents.SNSEventRecord{SNS: lambdaevents.SNSEntity{MessageID: id, Message: message}}
}

const launchMessage = `{
  "EC2InstanceId": "i-1",
  "LifecycleHookName": "launch",
  "AutoScalingGroupName": "rs-asg",
  "LifecycleActionToken": "tok",
  "NotificationMetadata": "{\"project\":\"MongoDB\",\"environment\":\"Test\",\"role\":\"rsmember\",\"id\":\"0\"}"
}`

func TestProvisionHandler_Handle(t *testing.T) {
	t.Parallel()
	p := &fakeProvisioner{err: errors.New("automation failed")}
	h := &ProvisionHandler{Provisioner: p}

	err := h.Handle(context.Background(), lambdaevents.SNSEvent{Records: []lambdaevents.SNSEventRecord{
		snsRecord("n0", `{"Event":"autoscaling:TEST_NOTIFICATION"}`),
		snsRecord("n1", launchMessage),
		snsRecord("n2", "not json"),
	}})
	require.NoError(t, err, "failures are not redelivered")

	require.Len(t, p.events, 1)
	assert.Equal(t, "i-1", p.events[0].InstanceID)
	assert.Equal(t, "0", p.events[0].Metadata.Slot)
	assert.True(t, p.events[0].Completes())
}

type fakeConverger struct {
	got    convergence.RunInput
	report convergence.Report
}

func (f *fakeConverger) Converge(_ context.Context, in convergence.RunInput) convergence.Report {
	f.got = in
	r := f.report
	r.Identity = in.Identity()
	return r
}

type recordingSink struct {
	reports []convergence.Report
}

func (s *recordingSink) Record(_ context.Context, r convergence.Report) error {
	s.reports = append(s.reports, r)
	return nil
}

func TestConvergeHandler_Handle(t *testing.T) {
	t.Parallel()
	sink := &recordingSink{}
	oracle := rstesting.NewMemoryOracle()
	conv := &fakeConverger{report: convergence.Report{Action: convergence.ActionNone, Result: convergence.ResultFailure, Error: "boom"}}
	h := &ConvergeHandler{Controller: conv, Oracle: oracle, Journal: sink}

	in := convergence.RunInput{Project: "p", Environment: "e", Role: "r"}
	report, err := h.Handle(context.Background(), in)
	require.NoError(t, err, "failed runs are reported, not raised")
	assert.Equal(t, convergence.ResultFailure, report.Result)
	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, in, conv.got)
	require.Len(t, sink.reports, 1)
	assert.Len(t, oracle.Finished(), 1)
	assert.Equal(t, 0, oracle.Active(in.Identity().WorkflowID()))
}

func TestConvergeHandler_DefersToActiveRun(t *testing.T) {
	t.Parallel()
	in := convergence.RunInput{Project: "p", Environment: "e", Role: "r"}
	oracle := rstesting.NewMemoryOracle().Hold(in.Identity().WorkflowID(), 1)
	conv := &fakeConverger{}
	h := &ConvergeHandler{Controller: conv, Oracle: oracle, Journal: journal.Discard}

	_, err := h.Handle(context.Background(), in)

	assert.True(t, cluster.IsDeferred(err))
	assert.Empty(t, conv.got.Project, "no pass runs while another is active")
	assert.Empty(t, oracle.Started())
}

func TestConverge_LocalInput(t *testing.T) {
	saveAndRestoreFactories(t)
	useConfig(testConfig())

	var out bytes.Buffer
	stdout = &out
	readFile = func(name string) ([]byte, error) {
		assert.Equal(t, "input.json", name)
		return []byte(`{"nodes":{"id":["i-1"],"dns":["dns1"]},"project":"p","environment":"e","role":"r"}`), nil
	}

	oracle := rstesting.NewMemoryOracle()
	conv := &fakeConverger{report: convergence.Report{Action: convergence.ActionInit, Result: convergence.ResultSuccess}}
	err := convergeOnce(context.Background(), &ConvergeHandler{Controller: conv, Oracle: oracle, Journal: journal.Discard}, "input.json")
	require.NoError(t, err)
	assert.Equal(t, []string{"i-1"}, conv.got.Nodes.ID)
	assert.Contains(t, out.String(), `"action": "init"`)

	conv.report = convergence.Report{Action: convergence.ActionAdd, Result: convergence.ResultFailure, Error: "rs.add failed"}
	err = convergeOnce(context.Background(), &ConvergeHandler{Controller: conv, Oracle: oracle}, "input.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rs.add failed")
	assert.Len(t, oracle.Finished(), 2)
}

func TestConverge_BadInput(t *testing.T) {
	saveAndRestoreFactories(t)

	readFile = func(string) ([]byte, error) { return []byte(`{"project":"p"}`), nil }
	err := convergeOnce(context.Background(), &ConvergeHandler{Controller: &fakeConverger{}}, "x.json")
	assert.True(t, cluster.IsConfigError(err))

	readFile = func(string) ([]byte, error) { return []byte(`{`), nil }
	err = convergeOnce(context.Background(), &ConvergeHandler{Controller: &fakeConverger{}}, "x.json")
	assert.ErrorContains(t, err, "failed to decode run input")
}

func TestConverge_RequiresInput(t *testing.T) {
	saveAndRestoreFactories(t)
	useConfig(testConfig())

	called := false
	startLambda = func(any) { called = true }

	err := Converge(context.Background(), "", "")
	assert.ErrorContains(t, err, "run input is required")
	assert.False(t, called)
}

func TestGate_StartsLambda(t *testing.T) {
	saveAndRestoreFactories(t)
	useConfig(testConfig())

	var handler any
	startLambda = func(h any) { handler = h }

	require.NoError(t, Gate(context.Background(), ""))
	_, ok := handler.(func(context.Context, lambdaevents.SQSEvent) (lambdaevents.SQSEventResponse, error))
	assert.True(t, ok)
}

func TestGate_InvalidConfig(t *testing.T) {
	saveAndRestoreFactories(t)
	cfg := testConfig()
	cfg.Oracle.StateMachineARN = ""
	useConfig(cfg)

	called := false
	startLambda = func(any) { called = true }

	err := Gate(context.Background(), "")
	assert.True(t, cluster.IsConfigError(err))
	assert.False(t, called)
}

func TestSetup_ServesMetrics(t *testing.T) {
	saveAndRestoreFactories(t)
	cfg := testConfig()
	cfg.Metrics.Addr = ":0"
	useConfig(cfg)

	served := make(chan string, 1)
	serveMetrics = func(_ context.Context, addr string, _ logr.Logger) error {
		served <- addr
		return nil
	}

	_, rt, err := setup(context.Background(), "", config.ComponentConverge)
	require.NoError(t, err)
	assert.Same(t, cfg, rt.Config)
	assert.Equal(t, ":0", <-served)
}

func TestNewRegistry(t *testing.T) {
	saveAndRestoreFactories(t)
	clients, err := loadClients(context.Background(), "us-west-2")
	require.NoError(t, err)

	cfg := testConfig()
	store, err := newRegistry(&Runtime{Config: cfg, Clients: clients})
	require.NoError(t, err)
	assert.IsType(t, &awsInternal.ParameterStore{}, store)

	cfg.Registry = config.RegistryConfig{Backend: config.RegistryConsul, ConsulAddr: "127.0.0.1:8500"}
	store, err = newRegistry(&Runtime{Config: cfg, Clients: clients})
	require.NoError(t, err)
	assert.IsType(t, &consul.Store{}, store)

	cfg.Registry.Backend = "etcd"
	_, err = newRegistry(&Runtime{Config: cfg, Clients: clients})
	assert.Error(t, err)
}

func TestNewOracle(t *testing.T) {
	saveAndRestoreFactories(t)
	clients, err := loadClients(context.Background(), "us-west-2")
	require.NoError(t, err)

	cfg := testConfig()
	oracle, err := newOracle(&Runtime{Config: cfg, Clients: clients})
	require.NoError(t, err)
	assert.IsType(t, &awsInternal.Oracle{}, oracle)

	cfg.Oracle = config.OracleConfig{Backend: config.OracleRedis, RedisAddr: "127.0.0.1:6379"}
	oracle, err = newOracle(&Runtime{Config: cfg, Clients: clients})
	require.NoError(t, err)
	assert.IsType(t, &redisInternal.LeaseOracle{}, oracle)

	cfg.Oracle.Backend = "zookeeper"
	_, err = newOracle(&Runtime{Config: cfg, Clients: clients})
	assert.Error(t, err)
}

func TestNewJournal_Disabled(t *testing.T) {
	sink, err := newJournal(context.Background(), &Runtime{Config: testConfig()})
	require.NoError(t, err)
	assert.Equal(t, journal.Discard, sink)
}

type fakeRecentRuns struct {
	reports []convergence.Report
	id      cluster.Identity
	limit   int
}

func (f *fakeRecentRuns) Recent(_ context.Context, id cluster.Identity, limit int) ([]convergence.Report, error) {
	f.id, f.limit = id, limit
	return f.reports, nil
}

func TestHistory(t *testing.T) {
	saveAndRestoreFactories(t)
	useConfig(testConfig())

	var out bytes.Buffer
	stdout = &out
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	runs := &fakeRecentRuns{reports: []convergence.Report{{
		RunID:      "run-2",
		Action:     convergence.ActionAdd,
		Result:     convergence.ResultSuccess,
		StartedAt:  start,
		FinishedAt: start.Add(3 * time.Second),
	}}}
	newRecentRuns = func(context.Context, *Runtime) (RecentRuns, error) { return runs, nil }

	id := cluster.Identity{Project: "p", Environment: "e", Role: "r"}
	require.NoError(t, History(context.Background(), "", id, 5, false))

	assert.Equal(t, id, runs.id)
	assert.Equal(t, 5, runs.limit)
	assert.Contains(t, out.String(), "FINISHED")
	assert.Contains(t, out.String(), "2024-01-01 12:00:03")
	assert.Contains(t, out.String(), "run-2")
	assert.Contains(t, out.String(), "3s")
}

func TestHistory_JournalDisabled(t *testing.T) {
	saveAndRestoreFactories(t)
	useConfig(testConfig())

	err := History(context.Background(), "", cluster.Identity{Project: "p", Environment: "e", Role: "r"}, 5, true)
	assert.ErrorIs(t, err, ErrJournalDisabled)
}

func TestPrintHistory_Empty(t *testing.T) {
	saveAndRestoreFactories(t)
	var out bytes.Buffer
	stdout = &out

	require.NoError(t, printHistory(nil, false))
	assert.Equal(t, "No runs recorded.\n", out.String())
}
