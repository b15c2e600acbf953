package main

import (
	"log"

	"Caravan/CronJobs"
	"Caravan/FiberConfig"
	"Caravan/Models"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment defaults")
	}

	Models.Connect()

	auditor := CronJobs.NewLinkageAuditor(Models.NewLedgerStore(Models.DB))
	if err := auditor.Start(); err != nil {
		log.Printf("Failed to start linkage auditor: %v", err)
	}

	FiberConfig.FiberConfig()
}
