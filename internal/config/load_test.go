package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnvVars = []string{
	EnvConfigPath, EnvRegion, EnvDebug, EnvDocName, EnvQueueURL, EnvPIOPS,
	EnvStateMachineARN, EnvOracle, EnvRegistry, EnvRedisAddr, EnvConsulAddr,
	EnvJournalBucket, EnvMetricsAddr,
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, v := range configEnvVars {
		t.Setenv(v, "")
		_ = os.Unsetenv(v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultRegion, cfg.Region)
	assert.Equal(t, RegistrySSM, cfg.Registry.Backend)
	assert.Equal(t, OracleStepFunctions, cfg.Oracle.Backend)
	assert.Equal(t, DefaultCommandDocument, cfg.Convergence.CommandDocument)
	assert.Equal(t, DefaultMemberPort, cfg.Convergence.MemberPort)
	assert.Equal(t, "io1", cfg.Provisioner.VolumeType)
	assert.Equal(t, int32(DefaultVolumeIOPS), cfg.Provisioner.VolumeIOPS)
	assert.True(t, cfg.Provisioner.Encrypted())
	assert.True(t, cfg.Convergence.ShouldVerifyProcesses())
	assert.False(t, cfg.Journal.Enabled())
	require.NotNil(t, cfg.Timeouts)
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearConfigEnv(t)

	path := filepath.Join(t.TempDir(), "rsjoin.yaml")
	yaml := `
region: eu-central-1
oracle:
  backend: redis
  redis_addr: localhost:6379
provisioner:
  automation_document: file-doc
  volume_iops: 500
convergence:
  member_port: 27018
  verify_processes: false
journal:
  bucket: runs
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	t.Setenv(EnvDocName, "env-doc")
	t.Setenv(EnvPIOPS, "3000")
	t.Setenv(EnvDebug, "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "eu-central-1", cfg.Region)
	assert.Equal(t, OracleRedis, cfg.Oracle.Backend)
	assert.Equal(t, "localhost:6379", cfg.Oracle.RedisAddr)
	assert.Equal(t, "env-doc", cfg.Provisioner.AutomationDocument)
	assert.Equal(t, int32(3000), cfg.Provisioner.VolumeIOPS)
	assert.Equal(t, 27018, cfg.Convergence.MemberPort)
	assert.False(t, cfg.Convergence.ShouldVerifyProcesses())
	assert.True(t, cfg.Journal.Enabled())
	assert.True(t, cfg.Debug)
}

func TestLoad_PathFromEnv(t *testing.T) {
	clearConfigEnv(t)

	path := filepath.Join(t.TempDir(), "rsjoin.yaml")
	require.NoError(t, os.WriteFile(path, []byte("region: ap-south-1\n"), 0o600))
	t.Setenv(EnvConfigPath, path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "ap-south-1", cfg.Region)
}

func TestLoad_Errors(t *testing.T) {
	clearConfigEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("region: [unterminated"), 0o600))
	_, err = Load(bad)
	assert.ErrorContains(t, err, "failed to unmarshal yaml")

	t.Setenv(EnvPIOPS, "lots")
	_, err = Load("")
	assert.ErrorContains(t, err, "invalid PIOPS")
}

func TestLoadDotEnv(t *testing.T) {
	clearConfigEnv(t)

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("QUEUEURL=https://sqs.example/queue\n"), 0o600))

	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "absent.env"), path))
	t.Cleanup(func() { _ = os.Unsetenv(EnvQueueURL) })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "https://sqs.example/queue", cfg.Provisioner.QueueURL)
}
