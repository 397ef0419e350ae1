// Package tasks defines the structure for tasks that are sent to Kafka.
package tasks

// ResumeIngestTask asks the ingestion consumer to index one uploaded resume file.
type ResumeIngestTask struct {
	FileMD5    string `json:"file_md5"`
	ObjectName string `json:"object_name"`
	FileName   string `json:"file_name"`
}
