package model

type Usage struct {
	PromptTokens     uint32 `json:"prompt_tokens"`
	CompletionTokens uint32 `json:"completion_tokens"`
	TotalTokens      uint32 `json:"total_tokens"`
}

type ChatReply struct {
	Message string `json:"message"`
	Usage   Usage  `json:"usage"`
}
