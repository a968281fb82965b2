package processing

import (
	"errors"
	"fmt"

	"docinsight-backend/model"
)

// State 处理流程中的状态
type State string

const (
	StateUploaded   State = "uploaded"
	StateExtracting State = "extracting"
	StatePreparing  State = "preparing"
	StateReady      State = "ready"
	StateError      State = "error"
)

type Event string

const (
	EventStart     Event = "start"
	EventExtracted Event = "extracted"
	EventGenerated Event = "generated"
	EventFail      Event = "fail"
)

var ErrInvalidTransition = errors.New("invalid state transition")

var transitions = map[State]map[Event]State{
	StateUploaded: {
		EventStart: StateExtracting,
		EventFail:  StateError,
	},
	StateExtracting: {
		EventExtracted: StatePreparing,
		EventFail:      StateError,
	},
	StatePreparing: {
		EventGenerated: StateReady,
		EventFail:      StateError,
	},
}

// Transition 返回 from 状态在 ev 事件后的目标状态，终态不接受任何事件
func Transition(from State, ev Event) (State, error) {
	to, ok := transitions[from][ev]
	if !ok {
		return from, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, from, ev)
	}
	return to, nil
}

// Stage 状态对应的持久化字段
type Stage struct {
	Status model.Status
	Label  string

	// 为 -1 时保留当前进度
	Progress int
}

var stages = map[State]Stage{
	StateUploaded:   {Status: model.StatusUploaded, Label: "upload", Progress: 0},
	StateExtracting: {Status: model.StatusProcessing, Label: "extracting", Progress: 10},
	StatePreparing:  {Status: model.StatusProcessing, Label: "preparing", Progress: 50},
	StateReady:      {Status: model.StatusReady, Label: "complete", Progress: 100},
	StateError:      {Status: model.StatusError, Label: "error", Progress: -1},
}

func StageOf(s State) Stage {
	return stages[s]
}

// StateOf 根据文档记录推断其所处状态
func StateOf(doc *model.Document) State {
	switch doc.Status {
	case model.StatusUploaded:
		return StateUploaded
	case model.StatusExtracting:
		return StateExtracting
	case model.StatusPreparing:
		return StatePreparing
	case model.StatusProcessing:
		if doc.CurrentStage == stages[StatePreparing].Label {
			return StatePreparing
		}
		return StateExtracting
	case model.StatusReady:
		return StateReady
	default:
		return StateError
	}
}
