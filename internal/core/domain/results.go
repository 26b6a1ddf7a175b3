package domain

// SwitchRoleResult is the payload of the switch_role procedure. Business
// failures are reported in Error with Success false; the call itself still
// succeeds.
type SwitchRoleResult struct {
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
	ActiveRole Role   `json:"active_role,omitempty"`
}
