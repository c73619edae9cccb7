package config

import (
	"fmt"
	"os"
	"strings"
)

// UpdateChainState rewrites the two state keys in the configuration file
// after a successful send. State.FirstTx is only set once, when it still
// holds the zero id; State.LastTx always moves to the newest chain tail.
// The rewrite is a line edit so the rest of the file keeps its layout.
func UpdateChainState(pathToConfig, firstTx, lastTx string) error {
	raw, err := os.ReadFile(pathToConfig)
	if err != nil {
		return fmt.Errorf("reading %s: %w", pathToConfig, err)
	}

	if StateFirstTx == ZeroTxID {
		StateFirstTx = firstTx
	}
	StateLastTx = lastTx

	lines := strings.Split(string(raw), "\n")
	seenFirst, seenLast := false, false
	for i, line := range lines {
		key := strings.TrimSpace(strings.SplitN(line, "=", 2)[0])
		switch key {
		case "State.FirstTx":
			lines[i] = "State.FirstTx = " + StateFirstTx
			seenFirst = true
		case "State.LastTx":
			lines[i] = "State.LastTx = " + StateLastTx
			seenLast = true
		}
	}
	if !seenFirst {
		lines = append(lines, "State.FirstTx = "+StateFirstTx)
	}
	if !seenLast {
		lines = append(lines, "State.LastTx = "+StateLastTx)
	}

	out := strings.Join(lines, "\n")
	if err := os.WriteFile(pathToConfig, []byte(out), 0640); err != nil {
		return fmt.Errorf("writing %s: %w", pathToConfig, err)
	}

	return nil
}
