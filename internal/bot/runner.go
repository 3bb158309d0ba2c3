package bot

import (
	"fmt"

	"rails/internal/app"
	"rails/internal/domain"
)

// Submitter applies an action to the game and returns the resulting events.
type Submitter func(domain.Action) ([]app.Event, error)

// Broadcast hands events to every agent.
func Broadcast(agents []*Agent, events []app.Event) {
	for _, ev := range events {
		for _, a := range agents {
			a.OnGameEvent(ev)
		}
	}
}

// Autoplay lets agents act until none of them has a move, the game ends, or limit moves were
// made (limit <= 0 means no limit). It returns the number of moves and the events they produced.
func Autoplay(t Table, submit Submitter, agents []*Agent, limit int) (int, []app.Event, error) {
	var all []app.Event
	moves := 0
	for limit <= 0 || moves < limit {
		if t.Snapshot().Result != nil {
			break
		}
		moved := false
		for _, ag := range agents {
			action, ok, err := ag.Play(t)
			if err != nil {
				return moves, all, err
			}
			if !ok {
				continue
			}
			events, err := submit(action)
			if err != nil {
				return moves, all, fmt.Errorf("bot %s played %s: %w", ag.ID, action.Kind, err)
			}
			Broadcast(agents, events)
			all = append(all, events...)
			moves++
			moved = true
			break
		}
		if !moved {
			break
		}
	}
	return moves, all, nil
}
