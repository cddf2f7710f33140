package pubsub

// Pub/Sub attribute names for CloudEvents binary content mode.
const (
	attrPrefix      = "ce-"
	attrContentType = "content-type"
)
