package domain

// Record is the minimal restart state of a durable session. It is written by
// the engine after every successfully executed node and replayed by Resume:
// the menu named by MenuID is rebuilt with the stored settings and LastNode
// is re-run with LastInput and LastKwargs.
//
// Only data survives a restart; node functions cannot be serialized, so the
// caller resolving MenuID back to a menu source is part of the contract.
type Record struct {
	MenuID    string `json:"menu_id"`
	StartNode string `json:"start_node"`

	LastNode   string `json:"last_node"`
	LastInput  string `json:"last_input"`
	LastKwargs Map    `json:"last_kwargs,omitempty"`

	AutoQuit bool `json:"auto_quit"`
	AutoLook bool `json:"auto_look"`
	AutoHelp bool `json:"auto_help"`
}
