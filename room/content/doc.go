// Package content loads the mini-game content packs used by SocialSpot rooms.
//
// A pack holds the quiz questions and the truth-or-dare and never-have-I-ever
// prompts. Packs are read with viper, so JSON, YAML and TOML files are all
// accepted; the format is taken from the file extension. When no file is
// configured the embedded default pack is used.
//
// Packs are validated on load: every kind needs a non-empty pool and every quiz
// question needs at least two options and an in-range correct index.
//
// Usage:
//
//	manager, err := content.NewManager("packs/party.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	pack := manager.Pack()
package content
