package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"root/internal/model"
)

// TypeDailyBatch asks a consumer to run the daily attendance batch for a date.
const TypeDailyBatch = "daily_batch"

type dailyBatchBody struct {
	Date string `json:"date"`
}

// NewDailyBatch builds the trigger message for day.
func NewDailyBatch(day time.Time) Message {
	body, _ := json.Marshal(dailyBatchBody{Date: day.Format(model.DateLayout)})
	return Message{Type: TypeDailyBatch, Body: body}
}

// ParseDailyBatch returns the day a daily_batch message targets, as midnight in loc.
func ParseDailyBatch(msg Message, loc *time.Location) (time.Time, error) {
	if msg.Type != TypeDailyBatch {
		return time.Time{}, fmt.Errorf("unexpected message type %q", msg.Type)
	}
	var body dailyBatchBody
	if err := json.Unmarshal(msg.Body, &body); err != nil {
		return time.Time{}, fmt.Errorf("decode daily batch: %w", err)
	}
	day, err := time.ParseInLocation(model.DateLayout, body.Date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("decode daily batch date: %w", err)
	}
	return day, nil
}
