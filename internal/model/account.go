package model

// ActionResult is the reply of mutation actions (placeOrder, deposit, sync...).
type ActionResult struct {
	Success    bool    `json:"success"`
	Message    string  `json:"message,omitempty"`
	Balance    *Number `json:"balance,omitempty"`
	NewBalance *Number `json:"newBalance,omitempty"`
	SyncCount  int     `json:"syncCount,omitempty"`
	ID         string  `json:"id,omitempty"`
	URL        string  `json:"url,omitempty"`
}

// UpgradeRequest is the submitUpgradeRequest payload.
type UpgradeRequest struct {
	Method string `json:"method"`
}
