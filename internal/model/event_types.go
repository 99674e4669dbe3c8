package model

type EventType string

const (
	EventTypeKitCreated         EventType = "kit.created"
	EventTypeKitUpdated         EventType = "kit.updated"
	EventTypeKitDeleted         EventType = "kit.deleted"
	EventTypeKitCompleted       EventType = "kit.completed"
	EventTypeDesignStarted      EventType = "design.started"
	EventTypeDesignSwitched     EventType = "design.switched"
	EventTypeDesignCompleted    EventType = "design.completed"
	EventTypeDesignUncompleted  EventType = "design.uncompleted"
	EventTypeDesignPhotoUpdated EventType = "design.photo.updated"
	EventTypeDesignPhotoDeleted EventType = "design.photo.deleted"
	EventTypeDesignsReconciled  EventType = "designs.reconciled"
	EventTypePickCreated        EventType = "pick.created"
	EventTypePickDeleted        EventType = "pick.deleted"
	EventTypeResyncRequired     EventType = "resync.required"
)

var websocketEventTypes = []EventType{
	EventTypeKitCreated,
	EventTypeKitUpdated,
	EventTypeKitDeleted,
	EventTypeKitCompleted,
	EventTypeDesignStarted,
	EventTypeDesignSwitched,
	EventTypeDesignCompleted,
	EventTypeDesignUncompleted,
	EventTypeDesignPhotoUpdated,
	EventTypeDesignPhotoDeleted,
	EventTypeDesignsReconciled,
	EventTypePickCreated,
	EventTypePickDeleted,
	EventTypeResyncRequired,
}

func WebSocketEventTypes() []EventType {
	out := make([]EventType, len(websocketEventTypes))
	copy(out, websocketEventTypes)
	return out
}
