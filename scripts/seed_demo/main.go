package main

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/nataliehoang91/lumi-self-lab-sub002/internal/config"
	"github.com/nataliehoang91/lumi-self-lab-sub002/internal/db"
	"github.com/nataliehoang91/lumi-self-lab-sub002/internal/service"
	"golang.org/x/crypto/bcrypt"
)

// Demo data seeder: one user, one active experiment with every field type
// and two weeks of check-ins.
func main() {
	cfg := config.Load()
	if err := db.Init(cfg.DatabasePath); err != nil {
		log.Fatal("failed to initialize database:", err)
	}

	var count int64
	db.DB.Model(&db.User{}).Count(&count)
	if count > 0 {
		fmt.Println("users already exist, skipping seed")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte("demo1234"), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal("failed to hash password:", err)
	}
	user := db.User{Username: "demo", Password: string(hashed), DisplayName: "Demo User"}
	if err := db.DB.Create(&user).Error; err != nil {
		log.Fatal("failed to create user:", err)
	}

	start := time.Now().UTC().AddDate(0, 0, -14)
	experiment := db.Experiment{
		PublicID:    uuid.NewString(),
		OwnerID:     user.ID,
		Title:       "Morning routine",
		Description: "Two weeks of sleep, mood and exercise tracking",
		Status:      db.ExperimentStatusActive,
		StartDate:   &start,
	}
	if err := db.DB.Create(&experiment).Error; err != nil {
		log.Fatal("failed to create experiment:", err)
	}

	five := 5
	one, ten := 1.0, 10.0
	fields := []db.Field{
		{ExperimentID: experiment.ID, Label: "Sleep quality", Type: db.FieldTypeNumber, Required: true, MinValue: &one, MaxValue: &ten, DisplayOrder: 1},
		{ExperimentID: experiment.ID, Label: "Mood", Type: db.FieldTypeEmoji, EmojiCount: &five, DisplayOrder: 2},
		{ExperimentID: experiment.ID, Label: "Exercised", Type: db.FieldTypeYesNo, DisplayOrder: 3},
		{ExperimentID: experiment.ID, Label: "Breakfast", Type: db.FieldTypeSelect, SelectOptions: []string{"eggs", "oats", "none"}, DisplayOrder: 4},
		{ExperimentID: experiment.ID, Label: "Journal", Type: db.FieldTypeText, DisplayOrder: 5},
	}
	for i := range fields {
		if err := db.DB.Create(&fields[i]).Error; err != nil {
			log.Fatal("failed to create field:", err)
		}
	}

	checkInSvc := service.NewCheckInService(db.DB)
	breakfasts := []string{"eggs", "oats", "none"}
	for day := 0; day < 14; day++ {
		date := start.AddDate(0, 0, day)
		responses := []service.SubmittedResponse{
			{FieldID: fields[0].ID, Value: service.NumberValue{Number: float64(3 + day%7)}},
			{FieldID: fields[1].ID, Value: service.NumberValue{Number: float64(1 + (day+2)%5)}},
			{FieldID: fields[2].ID, Value: service.BoolValue{Bool: day%2 == 0}},
			{FieldID: fields[3].ID, Value: service.SelectValue{Option: breakfasts[day%3]}},
			{FieldID: fields[4].ID, Value: service.TextValue{Text: fmt.Sprintf("Day %d notes", day+1)}},
		}
		input := service.CheckInInput{Date: date, Notes: fmt.Sprintf("Day %d", day+1), Responses: responses}
		if _, verr, err := checkInSvc.Upsert(&experiment, fields, input); err != nil || verr != nil {
			log.Fatalf("failed to seed check-in for day %d: %v %v", day+1, err, verr)
		}
	}

	fmt.Println("demo data ready")
	fmt.Println("user: demo (password: demo1234)")
	fmt.Printf("experiment: %s\n", experiment.PublicID)
}
