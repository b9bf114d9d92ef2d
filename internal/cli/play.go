package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mdsim/ratedrps-go/internal/model"
	"github.com/mdsim/ratedrps-go/internal/protocol"
)

func newPlayCmd() *cobra.Command {
	var (
		moveFlag string
		wait     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Join the lobby, play one match, and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := NewOutput(cfg.Output)

			move, err := model.ParseMove(moveFlag)
			if err != nil {
				return fmt.Errorf("invalid --move %q: must be rock, paper or scissors", moveFlag)
			}

			if err := client.Connect(); err != nil {
				return err
			}
			defer client.Close()

			if err := client.Send(protocol.TypeJoinLobby, protocol.JoinLobbyPayload{}); err != nil {
				return err
			}
			out.PrintMessage("Waiting for an opponent...")

			env, err := client.WaitFor(protocol.TypeMatchFound, wait)
			if err != nil {
				return err
			}
			var found protocol.MatchFoundPayload
			if err := env.Decode(&found); err != nil {
				return err
			}
			out.PrintMatchFound(found)

			if err := client.Send(protocol.TypeMakeMove, protocol.MakeMovePayload{
				GameID: found.GameID,
				Move:   string(move),
			}); err != nil {
				return err
			}

			env, err = client.WaitFor(protocol.TypeGameUpdate, wait)
			if err != nil {
				return err
			}
			var update protocol.GameUpdatePayload
			if err := env.Decode(&update); err != nil {
				return err
			}
			out.PrintGameUpdate(update)
			return nil
		},
	}

	cmd.Flags().StringVarP(&moveFlag, "move", "m", "", "move to play: rock, paper or scissors")
	cmd.Flags().DurationVar(&wait, "wait", defaultWait, "how long to wait for pairing and resolution")
	_ = cmd.MarkFlagRequired("move")

	return cmd
}
