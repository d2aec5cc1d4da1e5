package main

import (
	"context"
	"log"
	"time"

	"maffix/internal/services"

	"github.com/robfig/cron/v3"
)

const CRONJOB_TIME_TICKET_SWEEP = "CRONJOB_TIME_TICKET_SWEEP"
const DEFAULT_TICKET_SWEEP_SPEC = "*/10 * * * *"

type TicketSweepJob struct {
	serviceLedger *services.ServiceLedger
	serviceConfig *services.ServiceConfig
}

func NewTicketSweepJob(serviceLedger *services.ServiceLedger, serviceConfig *services.ServiceConfig) *TicketSweepJob {
	return &TicketSweepJob{
		serviceLedger: serviceLedger,
		serviceConfig: serviceConfig,
	}
}

func (j *TicketSweepJob) Start(cronRunner *cron.Cron) error {
	ctx := context.Background()
	spec, err := j.serviceConfig.GetStringConfig(ctx, CRONJOB_TIME_TICKET_SWEEP, DEFAULT_TICKET_SWEEP_SPEC)
	if err != nil {
		spec = DEFAULT_TICKET_SWEEP_SPEC
	}

	_, err = cronRunner.AddFunc(spec, j.runScheduledTask)
	log.Println("Ticket sweep cronjob start at:", time.Now().Format("2006-01-02 15:04:05"), "cron:", spec, err)
	return err
}

func (j *TicketSweepJob) runScheduledTask() {
	ctx := context.Background()

	batch, _ := j.serviceConfig.GetIntConfig(ctx, services.CONFIG_TICKET_EXPIRY_SWEEP_BATCH, services.DEFAULT_SWEEP_BATCH)

	for {
		swept, err := j.serviceLedger.SweepExpiredTickets(ctx, batch)
		if err != nil {
			log.Println("ticket sweep:", err)
			return
		}
		if swept < batch {
			return
		}
	}
}
