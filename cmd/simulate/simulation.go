package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"golang.org/x/sync/errgroup"
)

// Simulation describes a scripted crowd.
type Simulation struct {
	URL    string
	Bots   int
	Locals int
	Rounds int
}

// Summary reports what the crowd observed.
type Summary struct {
	Bots             int            `json:"bots"`
	Rounds           int            `json:"rounds"`
	Scores           map[string]int `json:"scores"`
	PrivateMessages  int            `json:"private_messages"`
	UsersEnteredSeen int            `json:"users_entered_seen"`
}

// Run connects the crowd, spreads it over the locals, plays quiz rounds and
// exchanges private messages. In every round the first bot of the room
// answers correctly and the rest answer wrong.
func (s Simulation) Run(ctx context.Context, logger *slog.Logger) (*Summary, error) {
	if s.Bots < 1 || s.Locals < 1 {
		return nil, fmt.Errorf("need at least one bot and one local")
	}

	bots := make([]*Bot, 0, s.Bots)
	defer func() {
		for _, b := range bots {
			b.Close()
		}
	}()

	// Connect and check in one at a time so rosters are predictable.
	rooms := make(map[string][]*Bot)
	for i := 0; i < s.Bots; i++ {
		b, err := Dial(ctx, s.URL, fmt.Sprintf("bot-%02d", i))
		if err != nil {
			return nil, err
		}
		bots = append(bots, b)

		if err := b.Join(ctx); err != nil {
			return nil, err
		}
		localID := strconv.Itoa(i%s.Locals + 1)
		size, err := b.CheckIn(ctx, localID)
		if err != nil {
			return nil, err
		}
		rooms[localID] = append(rooms[localID], b)
		logger.Debug("bot checked in", "bot", b.Name, "local", localID, "roster", size)
	}

	for round := 0; round < s.Rounds; round++ {
		starter := bots[round%len(bots)]
		if err := s.playQuiz(ctx, starter, rooms[starter.LocalID]); err != nil {
			return nil, fmt.Errorf("round %d: %w", round, err)
		}
		logger.Info("quiz round finished", "round", round, "local", starter.LocalID)
	}

	messages, err := s.chat(ctx, rooms)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		Bots:            len(bots),
		Rounds:          s.Rounds,
		Scores:          make(map[string]int, len(bots)),
		PrivateMessages: messages,
	}
	for _, b := range bots {
		summary.Scores[b.Name] = b.Score
		summary.UsersEnteredSeen += b.Received("user_entered")
	}
	return summary, nil
}

func (s Simulation) playQuiz(ctx context.Context, starter *Bot, room []*Bot) error {
	if err := starter.Send("start_game", map[string]string{"localId": starter.LocalID, "kind": "quiz"}); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	for i, b := range room {
		first := i == 0
		g.Go(func() error {
			data, err := b.Await(ctx, "game_started")
			if err != nil {
				return err
			}

			var round struct {
				Options []string `json:"options"`
				Correct *int     `json:"correct"`
			}
			if err := json.Unmarshal(data, &round); err != nil {
				return fmt.Errorf("%s: decode game_started: %w", b.Name, err)
			}
			if round.Correct == nil || len(round.Options) < 2 {
				return fmt.Errorf("%s: quiz round without answer", b.Name)
			}

			answer := (*round.Correct + 1) % len(round.Options)
			if first {
				answer = *round.Correct
			}
			if err := b.Send("answer_quiz", map[string]any{"localId": b.LocalID, "answerIndex": answer}); err != nil {
				return err
			}
			if !first {
				return nil
			}

			data, err = b.Await(ctx, "score_update")
			if err != nil {
				return err
			}
			return json.Unmarshal(data, &b.Score)
		})
	}
	return g.Wait()
}

// chat makes every bot message the next bot of its room.
func (s Simulation) chat(ctx context.Context, rooms map[string][]*Bot) (int, error) {
	localIDs := make([]string, 0, len(rooms))
	for id := range rooms {
		localIDs = append(localIDs, id)
	}
	sort.Strings(localIDs)

	delivered := 0
	for _, id := range localIDs {
		room := rooms[id]
		if len(room) < 2 {
			continue
		}

		for i, b := range room {
			to := room[(i+1)%len(room)]
			if err := b.Send("private_message", map[string]string{"toConnectionId": to.ConnID, "message": "hi from " + b.Name}); err != nil {
				return delivered, err
			}
			if _, err := to.Await(ctx, "receive_private_message"); err != nil {
				return delivered, err
			}
			delivered++
		}
	}
	return delivered, nil
}
