// Package games provides the mini-game state machine for SocialSpot rooms.
//
// The games package implements:
//   - The closed set of mini-game kinds (quiz, truth_dare, never_have_i_ever)
//   - Content pools and uniform random dealing of a round
//   - The per-local game table holding at most one active round
//   - Server-side quiz verification against the stored correct index
//
// Core Types:
//
// Pack holds the fixed, ordered content pools for every kind. Deal picks one
// item from a pool through a Picker and returns the Content that is broadcast
// to the room. Table maps a local id to its current Session.
//
// State Machine:
//
// Each local is either idle (no entry in the table) or active with exactly one
// round. Starting a new round overwrites the previous one; rounds are never
// queued and never expire. A quiz round stays active after correct answers, so
// several players can score on the same question.
//
// Usage:
//
//	table := games.NewTable()
//	content, err := games.Deal(pack, games.KindQuiz, games.RandomPicker())
//	if err != nil {
//		return err
//	}
//	table.Start("local-1", content)
//
//	correct, active := table.CheckAnswer("local-1", 2)
package games
