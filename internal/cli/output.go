package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mdsim/ratedrps-go/internal/protocol"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]any{
			"error": map[string]string{"message": err.Error()},
		})
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Println(string(data))
	} else {
		fmt.Println(msg)
	}
}

// PrintMatchFound announces the pairing
func (o *Output) PrintMatchFound(p protocol.MatchFoundPayload) {
	if o.format == "json" {
		o.printJSON(p)
		return
	}
	fmt.Printf("Matched against %s (%s) in game %s\n", p.OpponentUsername, p.OpponentID, p.GameID)
}

// PrintGameUpdate reports the resolved outcome
func (o *Output) PrintGameUpdate(p protocol.GameUpdatePayload) {
	if o.format == "json" {
		o.printJSON(p)
		return
	}
	if p.Result == "draw" {
		fmt.Println("Result: draw")
	} else {
		fmt.Printf("Result: %s wins\n", p.Result)
	}
	fmt.Printf("Rating change: %+d / %+d\n", p.Player1EloDelta, p.Player2EloDelta)
}

// PrintHealth reports the health check response
func (o *Output) PrintHealth(status map[string]string) {
	if o.format == "json" {
		o.printJSON(status)
		return
	}
	fmt.Printf("Server status: %s\n", status["status"])
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}
