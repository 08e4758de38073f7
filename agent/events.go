package agent

// Event is one streamed element of an agent response. The frontend switches
// on Type: chunk, tool, complete or error.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ToolStatus is the payload of a tool event.
type ToolStatus struct {
	ToolName string `json:"tool_name"`
	Status   string `json:"status"`
}

func chunkEvent(text string) Event {
	return Event{Type: "chunk", Data: text}
}

func toolEvent(name string) Event {
	return Event{Type: "tool", Data: ToolStatus{ToolName: name, Status: "executing"}}
}

func completeEvent(text string) Event {
	return Event{Type: "complete", Data: text}
}

func errorEvent(msg string) Event {
	return Event{Type: "error", Data: msg}
}
