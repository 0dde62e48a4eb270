package output

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chrisdamba/mealplanner/internal/models"
)

const (
	EventTypePlanEntry   = "plan_entry"
	EventTypePlanSummary = "plan_summary"
)

// PlanEntryEvent is one filled slot of a plan as published to plan_entries.
type PlanEntryEvent struct {
	Timestamp   int64   `json:"timestamp" parquet:"name=timestamp, type=INT64"`
	EventType   string  `json:"eventType" parquet:"name=eventType, type=BYTE_ARRAY, convertedtype=UTF8"`
	PlanID      string  `json:"planId" parquet:"name=planId, type=BYTE_ARRAY, convertedtype=UTF8"`
	Day         int32   `json:"day" parquet:"name=day, type=INT32"`
	DayName     string  `json:"dayName" parquet:"name=dayName, type=BYTE_ARRAY, convertedtype=UTF8"`
	MealType    string  `json:"mealType" parquet:"name=mealType, type=BYTE_ARRAY, convertedtype=UTF8"`
	MealID      string  `json:"mealId" parquet:"name=mealId, type=BYTE_ARRAY, convertedtype=UTF8"`
	Restaurant  string  `json:"restaurant" parquet:"name=restaurant, type=BYTE_ARRAY, convertedtype=UTF8"`
	Meal        string  `json:"meal" parquet:"name=meal, type=BYTE_ARRAY, convertedtype=UTF8"`
	Price       float64 `json:"price" parquet:"name=price, type=DOUBLE"`
	Calories    float64 `json:"calories" parquet:"name=calories, type=DOUBLE"`
	Protein     float64 `json:"protein" parquet:"name=protein, type=DOUBLE"`
	Fat         float64 `json:"fat" parquet:"name=fat, type=DOUBLE"`
	Sugar       float64 `json:"sugar" parquet:"name=sugar, type=DOUBLE"`
	Calcium     float64 `json:"calcium" parquet:"name=calcium, type=DOUBLE"`
	Fiber       float64 `json:"fiber" parquet:"name=fiber, type=DOUBLE"`
	Cholesterol float64 `json:"cholesterol" parquet:"name=cholesterol, type=DOUBLE"`
	Status      string  `json:"status" parquet:"name=status, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// PlanSummaryEvent carries the plan level figures, published once per plan.
type PlanSummaryEvent struct {
	Timestamp       int64   `json:"timestamp" parquet:"name=timestamp, type=INT64"`
	EventType       string  `json:"eventType" parquet:"name=eventType, type=BYTE_ARRAY, convertedtype=UTF8"`
	PlanID          string  `json:"planId" parquet:"name=planId, type=BYTE_ARRAY, convertedtype=UTF8"`
	Status          string  `json:"status" parquet:"name=status, type=BYTE_ARRAY, convertedtype=UTF8"`
	Slots           int32   `json:"slots" parquet:"name=slots, type=INT32"`
	TotalCost       float64 `json:"totalCost" parquet:"name=totalCost, type=DOUBLE"`
	Budget          float64 `json:"budget" parquet:"name=budget, type=DOUBLE"`
	BudgetUsed      float64 `json:"budgetUsedPct" parquet:"name=budgetUsedPct, type=DOUBLE"`
	Objective       float64 `json:"objective" parquet:"name=objective, type=DOUBLE"`
	AvgCalories     float64 `json:"avgCaloriesPerDay" parquet:"name=avgCaloriesPerDay, type=DOUBLE"`
	AvgProtein      float64 `json:"avgProteinPerDay" parquet:"name=avgProteinPerDay, type=DOUBLE"`
	RelaxedFamilies string  `json:"relaxedFamilies" parquet:"name=relaxedFamilies, type=BYTE_ARRAY, convertedtype=UTF8"`
	Violations      int32   `json:"violations" parquet:"name=violations, type=INT32"`
	Nodes           int64   `json:"nodes" parquet:"name=nodes, type=INT64"`
	ElapsedMs       int64   `json:"elapsedMs" parquet:"name=elapsedMs, type=INT64"`
}

func entryEvents(plan *models.Plan) []PlanEntryEvent {
	ts := plan.CreatedAt.Unix()
	rows := plan.Rows()
	events := make([]PlanEntryEvent, 0, len(rows))
	for _, r := range rows {
		events = append(events, PlanEntryEvent{
			Timestamp:   ts,
			EventType:   EventTypePlanEntry,
			PlanID:      r.PlanID,
			Day:         r.Day,
			DayName:     r.DayName,
			MealType:    r.MealType,
			MealID:      r.MealID,
			Restaurant:  r.Restaurant,
			Meal:        r.Meal,
			Price:       r.Price,
			Calories:    r.Calories,
			Protein:     r.Protein,
			Fat:         r.Fat,
			Sugar:       r.Sugar,
			Calcium:     r.Calcium,
			Fiber:       r.Fiber,
			Cholesterol: r.Cholesterol,
			Status:      r.Status,
		})
	}
	return events
}

func summaryEvent(plan *models.Plan) PlanSummaryEvent {
	families := make([]string, len(plan.RelaxedFamilies))
	for i, f := range plan.RelaxedFamilies {
		families[i] = string(f)
	}
	return PlanSummaryEvent{
		Timestamp:       plan.CreatedAt.Unix(),
		EventType:       EventTypePlanSummary,
		PlanID:          plan.ID,
		Status:          plan.Status(),
		Slots:           int32(len(plan.Entries)),
		TotalCost:       plan.TotalCost,
		Budget:          plan.Budget,
		BudgetUsed:      plan.BudgetUsed,
		Objective:       plan.Objective,
		AvgCalories:     plan.AvgCalories,
		AvgProtein:      plan.AvgProtein,
		RelaxedFamilies: strings.Join(families, ","),
		Violations:      int32(len(plan.Violations)),
		Nodes:           int64(plan.Stats.Nodes),
		ElapsedMs:       plan.Stats.Elapsed.Milliseconds(),
	}
}

// decodeEvent turns a published message back into the typed event for its
// topic, which is what the columnar writer needs.
func decodeEvent(topic string, msg []byte) (interface{}, error) {
	switch baseTopic(topic) {
	case models.TopicPlanEntries:
		var e PlanEntryEvent
		if err := json.Unmarshal(msg, &e); err != nil {
			return nil, err
		}
		return e, nil
	case models.TopicPlanSummaries:
		var e PlanSummaryEvent
		if err := json.Unmarshal(msg, &e); err != nil {
			return nil, err
		}
		return e, nil
	}
	return nil, fmt.Errorf("no schema for topic %s", topic)
}

func schemaFor(topic string) (interface{}, error) {
	switch baseTopic(topic) {
	case models.TopicPlanEntries:
		return new(PlanEntryEvent), nil
	case models.TopicPlanSummaries:
		return new(PlanSummaryEvent), nil
	}
	return nil, fmt.Errorf("no schema for topic %s", topic)
}

// baseTopic strips a "prefix_" added for Kafka.
func baseTopic(topic string) string {
	for _, t := range []string{models.TopicPlanEntries, models.TopicPlanSummaries} {
		if topic == t || strings.HasSuffix(topic, "_"+t) {
			return t
		}
	}
	return topic
}
