package shared

// MessageType definiert den Typ einer Nachricht für die WebSocket-Kommunikation.
type MessageType int

// Values match the play client's RESPONSE_TYPE_MAP.
const (
	MessageTypeText    MessageType = 0 // PRINT-Ausgabe
	MessageTypeClear   MessageType = 1 // CLS
	MessageTypePlot    MessageType = 4 // ein Zeichen an (x,y)
	MessageTypeSession MessageType = 8 // Session-ID Übermittlung
	MessageTypeSprite  MessageType = 10
	MessageTypeKeyDown MessageType = 16 // Taste gedrückt (für KEY und INKEY)
	MessageTypeKeyUp   MessageType = 17 // Taste losgelassen
	MessageTypeLoad    MessageType = 32 // Client sendet neuen Programmtext
	MessageTypeHalt    MessageType = 33 // Hauptprogramm beendet
	MessageTypeError   MessageType = 34 // BASIC-Laufzeit- oder Syntaxfehler
	MessageTypeFrame   MessageType = 35 // Ende eines gezeichneten Frames
)

var messageTypeNames = map[MessageType]string{
	MessageTypeText:    "TEXT",
	MessageTypeClear:   "CLEAR",
	MessageTypePlot:    "PLOT",
	MessageTypeSession: "SESSION",
	MessageTypeSprite:  "SPRITE",
	MessageTypeKeyDown: "KEYDOWN",
	MessageTypeKeyUp:   "KEYUP",
	MessageTypeLoad:    "LOAD",
	MessageTypeHalt:    "HALT",
	MessageTypeError:   "ERROR",
	MessageTypeFrame:   "FRAME",
}

func (t MessageType) String() string {
	if name, ok := messageTypeNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}

// Message repräsentiert eine Nachricht, die über WebSocket gesendet oder empfangen wird.
type Message struct {
	Type    MessageType `json:"type"`
	Content string      `json:"content,omitempty"` // TEXT, ERROR, LOAD
	// Für TEXT - verhindert automatischen Zeilenumbruch im Frontend
	NoNewline bool `json:"noNewline,omitempty"`

	// Für SESSION
	SessionID string `json:"sessionId,omitempty"`

	// PLOT und SPRITE
	ID uint32 `json:"id,omitempty"`
	X  int32  `json:"x"`
	Y  int32  `json:"y"`
	Ch string `json:"ch,omitempty"`
	FG uint8  `json:"fg"`
	BG uint8  `json:"bg"`
	// Pointer, um zwischen false und nicht gesetzt zu unterscheiden
	Visible *bool `json:"visible,omitempty"`

	// KEYDOWN/KEYUP: Tastenname wie im Browser ("a", "ArrowLeft", " ")
	Key string `json:"key,omitempty"`

	// FRAME
	Frame uint64 `json:"frame,omitempty"`
}
