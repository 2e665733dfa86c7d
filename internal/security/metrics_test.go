package security

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestParseMetricsLabels(t *testing.T) {
	labels, err := ParseMetricsLabels("service=cclog-plus,env=prod")
	require.NoError(t, err)
	require.Equal(t, prometheus.Labels{"service": "cclog-plus", "env": "prod"}, labels)
}

func TestParseMetricsLabelsEmpty(t *testing.T) {
	labels, err := ParseMetricsLabels("")
	require.NoError(t, err)
	require.Nil(t, labels)
}

func TestParseMetricsLabelsEnvExpansion(t *testing.T) {
	t.Setenv("CCLOG_TEST_REGION", "eu-west-1")
	labels, err := ParseMetricsLabels("region=${CCLOG_TEST_REGION}")
	require.NoError(t, err)
	require.Equal(t, prometheus.Labels{"region": "eu-west-1"}, labels)
}

func TestParseMetricsLabelsInvalid(t *testing.T) {
	_, err := ParseMetricsLabels("no-equals-sign")
	require.Error(t, err)

	_, err = ParseMetricsLabels("0bad=value")
	require.Error(t, err)
}
