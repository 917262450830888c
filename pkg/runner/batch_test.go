package runner

import (
	"errors"
	"sync"
	"testing"

	"example.com/HoloTools/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestRunParallelJoinsAllResults(t *testing.T) {
	devices := map[string]models.Device{
		"a": {Address: "10.0.0.1"},
		"b": {Address: "10.0.0.2"},
		"c": {Address: "10.0.0.3"},
	}

	var mu sync.Mutex
	seen := make(map[string]bool)
	results := RunParallel(devices, 2, func(name string, dev models.Device) error {
		mu.Lock()
		seen[name] = true
		mu.Unlock()
		if name == "b" {
			return errors.New("unreachable")
		}
		return nil
	})

	var got []Result
	for r := range results {
		got = append(got, r)
	}
	assert.Len(t, got, 3)
	assert.Len(t, seen, 3)
}

func TestCollectReturnsOnlyFailures(t *testing.T) {
	devices := map[string]models.Device{
		"ok":   {Address: "10.0.0.1"},
		"bad":  {Address: "10.0.0.2"},
		"also": {Address: "10.0.0.3"},
	}

	failed := Collect(RunParallel(devices, 4, func(name string, dev models.Device) error {
		if name == "bad" {
			return errors.New("boom")
		}
		return nil
	}))

	assert.Len(t, failed, 1)
	assert.Equal(t, "bad", failed[0].Name)
	assert.EqualError(t, failed[0].Error, "boom")
}
