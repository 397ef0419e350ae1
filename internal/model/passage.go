package model

// PassageMetadata 描述一个简历片段的来源。
type PassageMetadata struct {
	Source       string `json:"source"`
	ChunkID      int    `json:"chunk_id"`
	ModelVersion string `json:"model_version,omitempty"`
}

// Passage 是从向量索引检索到（或写入其中）的一段简历文本。
type Passage struct {
	ID       string          `json:"id"`
	Text     string          `json:"text"`
	Score    float64         `json:"score"`
	Metadata PassageMetadata `json:"metadata"`
}

// IndexDocument 是存储在检索索引中的文档结构。
type IndexDocument struct {
	ID           string    `json:"id"`
	Text         string    `json:"text"`
	Vector       []float32 `json:"vector"`
	Source       string    `json:"source"`
	ChunkID      int       `json:"chunk_id"`
	ModelVersion string    `json:"model_version"`
}

// QueryResult 是一次问答的结构化输出。
type QueryResult struct {
	Input   string    `json:"input"`
	Context []Passage `json:"context"`
	Answer  string    `json:"answer"`
}
