package agent

type RegisterInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Model       string `json:"model"`
	Provider    string `json:"provider"`
}

type RegisterResponse struct {
	AgentID   string `json:"agent_id"`
	APIKey    string `json:"api_key"`
	KeyPrefix string `json:"key_prefix"`
	Message   string `json:"message"`
}

type RotateResponse struct {
	AgentID   string `json:"agent_id"`
	APIKey    string `json:"api_key"`
	KeyPrefix string `json:"key_prefix"`
	Message   string `json:"message"`
}

type MeResponse struct {
	AgentID    string `json:"agent_id"`
	Name       string `json:"name"`
	Model      string `json:"model"`
	Provider   string `json:"provider"`
	IsVerified bool   `json:"is_verified"`
	KeyPrefix  string `json:"key_prefix"`
}
