package flagx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	allowed := []string{"-a", "-t"}
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{name: "separate value", args: []string{"-a", "http://x", "-z", "1"}, want: []string{"-a", "http://x"}},
		{name: "equals form", args: []string{"-t=30", "-z=1"}, want: []string{"-t=30"}},
		{name: "order preserved", args: []string{"-t", "5", "-a=h"}, want: []string{"-t", "5", "-a=h"}},
		{name: "unknown ignored", args: []string{"-x", "1", "positional"}, want: []string{}},
		{name: "dangling flag", args: []string{"-a"}, want: []string{"-a"}},
		{name: "flag does not eat flag", args: []string{"-a", "-t", "3"}, want: []string{"-a", "-t", "3"}},
		{name: "empty", args: nil, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, allowed))
		})
	}
}

func TestConfigFile(t *testing.T) {
	t.Setenv("CRM_TEST_CONFIG", "")

	assert.Equal(t, "a.json", ConfigFile([]string{"-a", "x", "-c", "a.json"}, "CRM_TEST_CONFIG"))
	assert.Equal(t, "b.json", ConfigFile([]string{"-config=b.json"}, "CRM_TEST_CONFIG"))
	assert.Equal(t, "", ConfigFile([]string{"-a", "x"}, "CRM_TEST_CONFIG"))

	t.Setenv("CRM_TEST_CONFIG", "env.json")
	assert.Equal(t, "env.json", ConfigFile(nil, "CRM_TEST_CONFIG"))
	assert.Equal(t, "flag.json", ConfigFile([]string{"-c", "flag.json"}, "CRM_TEST_CONFIG"))
	assert.Equal(t, "", ConfigFile(nil, ""))
}
