package standups

import (
	"context"
	"time"

	"github.com/roach88/tca/internal/clock"
	"github.com/roach88/tca/internal/codec"
	"github.com/roach88/tca/internal/effect"
	"github.com/roach88/tca/internal/reducer"
)

// RecordScreen times a meeting in progress. Each attendee speaks for an
// equal share of the standup's duration.
type RecordScreen struct {
	Standup        Standup `json:"standup"`
	SecondsElapsed int     `json:"seconds_elapsed"`
	SpeakerIndex   int     `json:"speaker_index"`
	Transcript     string  `json:"transcript"`
}

// SecondsRemaining is the time left in the whole meeting.
func (s RecordScreen) SecondsRemaining() int {
	return int(s.Standup.Duration()/time.Second) - s.SecondsElapsed
}

// RecordAction is a recording screen action.
type RecordAction interface{ isRecordAction() }

type (
	RecordAppeared    struct{}
	TimerTicked       struct{}
	NextSpeakerTapped struct{}
	EndMeetingTapped  struct{}

	TranscriptChanged struct {
		Transcript string `json:"transcript"`
	}

	// MeetingFinished tells the app to save the meeting and leave the
	// screen.
	MeetingFinished struct {
		Transcript string `json:"transcript"`
	}
)

func (RecordAppeared) isRecordAction()    {}
func (TimerTicked) isRecordAction()       {}
func (NextSpeakerTapped) isRecordAction() {}
func (EndMeetingTapped) isRecordAction()  {}
func (TranscriptChanged) isRecordAction() {}
func (MeetingFinished) isRecordAction()   {}

// RecordActions encodes recording actions.
var RecordActions = codec.NewRegistry[RecordAction](
	RecordAppeared{},
	TimerTicked{},
	NextSpeakerTapped{},
	EndMeetingTapped{},
	TranscriptChanged{},
	MeetingFinished{},
)

type recordTimerID struct{}

// NewRecordReducer returns the recording reducer. The timer ticks on c.
func NewRecordReducer(c clock.Clock) reducer.Reducer[RecordScreen, RecordAction] {
	return reducer.WithEnvironment(reducer.EnvFunc[RecordScreen, RecordAction, clock.Clock](reduceRecord), c)
}

func reduceRecord(s *RecordScreen, a RecordAction, c clock.Clock) effect.Effect[RecordAction] {
	switch a := a.(type) {
	case RecordAppeared:
		return effect.Run(func(ctx context.Context, send effect.SendFunc[RecordAction]) error {
			for range clock.Ticks(ctx, c, time.Second) {
				send(TimerTicked{})
			}
			return nil
		}).Cancellable(recordTimerID{}, true)

	case TimerTicked:
		s.SecondsElapsed++
		turn := s.Standup.TurnSeconds()
		if turn > 0 && s.SecondsElapsed%turn == 0 {
			if s.SpeakerIndex >= len(s.Standup.Attendees)-1 {
				return s.finish()
			}
			s.SpeakerIndex++
		}

	case NextSpeakerTapped:
		if s.SpeakerIndex >= len(s.Standup.Attendees)-1 {
			return s.finish()
		}
		s.SpeakerIndex++
		s.SecondsElapsed = s.SpeakerIndex * s.Standup.TurnSeconds()

	case EndMeetingTapped:
		return s.finish()

	case TranscriptChanged:
		s.Transcript = a.Transcript
	}
	return effect.None[RecordAction]()
}

func (s *RecordScreen) finish() effect.Effect[RecordAction] {
	return effect.Merge(
		effect.Cancel[RecordAction](recordTimerID{}),
		effect.Send[RecordAction](MeetingFinished{Transcript: s.Transcript}),
	)
}
