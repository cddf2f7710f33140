package shared

const (
	ProjectID = "pretty-der6y" // Can be overridden by GOOGLE_CLOUD_PROJECT

	TopicScheduledUpload = "topic-scheduled-upload"
	TopicUploadCompleted = "topic-upload-completed"

	CollectionUploads = "uploads"

	EventSource          = "/pretty-der6y/scheduled-uploader"
	EventUploadCompleted = "com.der6y.upload.completed"
)
