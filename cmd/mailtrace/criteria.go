package main

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tinytelemetry/mailtrace/internal/trace"
)

// criteriaFile is the YAML shape of a --criteria-file document. Every field
// is optional; empty fields stay unspecified.
type criteriaFile struct {
	From         string   `yaml:"from"`
	To           []string `yaml:"to"`
	MessageID    string   `yaml:"message_id"`
	Relay        string   `yaml:"relay"`
	ConnectionID string   `yaml:"connection_id"`
	ProcessID    string   `yaml:"process_id"`
	Status       string   `yaml:"status"`
}

// loadCriteriaFile reads search criteria from a YAML file.
func loadCriteriaFile(path string) (trace.Criteria, error) {
	var crit trace.Criteria

	data, err := os.ReadFile(path)
	if err != nil {
		return crit, fmt.Errorf("reading criteria file: %w", err)
	}

	var cf criteriaFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return crit, fmt.Errorf("parsing criteria file: %w", err)
	}

	crit.FromAddress = cf.From
	crit.ToAddresses = cf.To
	crit.MessageID = cf.MessageID
	crit.RelayHost = cf.Relay
	crit.ConnectionID = cf.ConnectionID
	crit.ProcessID = cf.ProcessID
	crit.Status = cf.Status
	return crit, nil
}

// stringList collects a repeatable flag value.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(value string) error {
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			*s = append(*s, part)
		}
	}
	return nil
}
