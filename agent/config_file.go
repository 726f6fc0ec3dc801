// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig is the YAML shape LoadConfig reads for the demo binary. Live
// telemetry produces the endpoint/instrumentation-key suppliers Config
// needs dynamically; a config file only makes sense for the fixed-at-
// startup fields below.
type FileConfig struct {
	LiveEndpoint       string `yaml:"live_endpoint"`
	InstrumentationKey string `yaml:"instrumentation_key"`
	RoleName           string `yaml:"role_name"`
	MachineName        string `yaml:"machine_name"`
	InstanceName       string `yaml:"instance_name"`
	Version            string `yaml:"version"`

	PingIntervalSeconds     float64 `yaml:"ping_interval_seconds"`
	PostIntervalSeconds     float64 `yaml:"post_interval_seconds"`
	ErrorBackoffWaitSeconds float64 `yaml:"error_backoff_wait_seconds"`
	SendQueueCapacity       int     `yaml:"send_queue_capacity"`
	NonNormalizedCPU        bool    `yaml:"non_normalized_cpu"`
}

// LoadConfig reads a FileConfig from path and converts it into a Config
// with the endpoint and instrumentation key pinned to the values read from
// disk — the common shape for the demo binary, where neither rotates at
// runtime. Embedding hosts that need live rotation should construct Config
// directly instead of going through LoadConfig.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if fc.LiveEndpoint == "" {
		return Config{}, fmt.Errorf("config file %s: live_endpoint is required", path)
	}
	if fc.InstrumentationKey == "" {
		return Config{}, fmt.Errorf("config file %s: instrumentation_key is required", path)
	}

	endpoint := fc.LiveEndpoint
	ikey := fc.InstrumentationKey

	return Config{
		LiveEndpointSupplier:       func() string { return endpoint },
		InstrumentationKeySupplier: func() string { return ikey },
		RoleName:                   fc.RoleName,
		MachineName:                fc.MachineName,
		InstanceName:               fc.InstanceName,
		Version:                    fc.Version,
		PingInterval:               secondsToDuration(fc.PingIntervalSeconds),
		PostInterval:               secondsToDuration(fc.PostIntervalSeconds),
		ErrorBackoffWait:           secondsToDuration(fc.ErrorBackoffWaitSeconds),
		SendQueueCapacity:          fc.SendQueueCapacity,
		NonNormalizedCPU:           fc.NonNormalizedCPU,
	}, nil
}

func secondsToDuration(seconds float64) time.Duration {
	if seconds <= 0 {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}
