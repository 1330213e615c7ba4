package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer"
)

func TestRun(t *testing.T) {
	for _, policy := range []indexer.Policy{indexer.Sequential, indexer.Parallel} {
		t.Run(policy.String(), func(t *testing.T) {
			var out bytes.Buffer
			if err := run(&out, policy); err != nil {
				t.Fatalf("run failed: %v", err)
			}
			got := out.String()
			for _, want := range []string{
				"Error adding document 1:",
				"Error adding document -1:",
				"Error adding document 12:",
				"Search results for: funny --pet\nSearch error:",
				"Search results for: big dog -\nSearch error:",
				"Found duplicate document id 3\n",
				"Found duplicate document id 7\n",
				"Before duplicates removed: 11\n",
				"After duplicates removed: 7\n",
				"Total empty requests: 1437\n",
			} {
				if !strings.Contains(got, want) {
					t.Errorf("output missing %q\n%s", want, got)
				}
			}
		})
	}
}
