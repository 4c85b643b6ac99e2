package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/xavierca1/ligue-leads/internal/command"
	"github.com/xavierca1/ligue-leads/internal/entity"
)

const leadSourceSMS = "sms"

type LinkConfig struct {
	BookingURL string
	ReviewURL  string
}

type ExecuteCommandInput struct {
	AgentPhone string
	Command    command.Command
}

// ExecuteCommandOutput always carries a reply. Err is the failure the reply
// was derived from, kept for logs and the message ledger.
type ExecuteCommandOutput struct {
	Reply string
	Err   error
}

type ExecuteCommandUseCase struct {
	Resolver       *LeadResolver
	Leads          entity.LeadRepositoryInterface
	Scheduler      NotificationScheduler
	Events         EventSink
	EmailService   EmailService
	Links          LinkConfig
	DashboardURL   string
	WelcomeMessage string
	Location       *time.Location
	Now            func() time.Time
	Logger         zerolog.Logger
}

func NewExecuteCommandUseCase(
	resolver *LeadResolver,
	leads entity.LeadRepositoryInterface,
	scheduler NotificationScheduler,
	events EventSink,
	emailService EmailService,
	links LinkConfig,
	dashboardURL string,
	logger zerolog.Logger,
) *ExecuteCommandUseCase {
	return &ExecuteCommandUseCase{
		Resolver:     resolver,
		Leads:        leads,
		Scheduler:    scheduler,
		Events:       events,
		EmailService: emailService,
		Links:        links,
		DashboardURL: dashboardURL,
		Location:     time.UTC,
		Now:          time.Now,
		Logger:       logger,
	}
}

// Execute never fails: every error, including a panic in a collaborator, is
// turned into a short reply for the sender.
func (uc *ExecuteCommandUseCase) Execute(ctx context.Context, input ExecuteCommandInput) (out *ExecuteCommandOutput) {
	log := uc.Logger.With().Str("command", string(input.Command.Kind)).Logger()

	defer func() {
		if r := recover(); r != nil {
			err := NewTransientError("execute "+string(input.Command.Kind), fmt.Errorf("panic: %v", r))
			log.Error().Interface("panic", r).Msg("command execution panicked")
			out = &ExecuteCommandOutput{Reply: replyForError(err), Err: err}
		}
	}()

	reply, err := uc.dispatch(ctx, input.AgentPhone, input.Command)
	if err != nil {
		log.Error().Err(err).Str("code", ErrorCode(err)).Msg("command failed")
		return &ExecuteCommandOutput{Reply: replyForError(err), Err: err}
	}
	return &ExecuteCommandOutput{Reply: reply}
}

func (uc *ExecuteCommandUseCase) dispatch(ctx context.Context, agentPhone string, cmd command.Command) (string, error) {
	switch cmd.Kind {
	case command.KindCreateLead:
		return uc.createLead(ctx, agentPhone, cmd)
	case command.KindUpdateLead:
		return uc.updateLead(ctx, agentPhone, cmd)
	case command.KindSetFollowUp:
		return uc.setFollowUp(ctx, agentPhone, cmd)
	case command.KindGetLeadStatus:
		return uc.getLeadStatus(ctx, agentPhone, cmd)
	case command.KindListLeads:
		return uc.listLeads(ctx, agentPhone, cmd)
	case command.KindSendBookingLink:
		return uc.sendLink(ctx, agentPhone, cmd, "booking", uc.Links.BookingURL)
	case command.KindSendReviewLink:
		return uc.sendLink(ctx, agentPhone, cmd, "review", uc.Links.ReviewURL)
	case command.KindHelp:
		return msgHelp, nil
	default:
		return msgUnknown, nil
	}
}

func (uc *ExecuteCommandUseCase) createLead(ctx context.Context, agentPhone string, cmd command.Command) (string, error) {
	if strings.TrimSpace(cmd.Name) == "" {
		return msgNameRequired, nil
	}
	if cmd.FollowUp != nil && !command.ValidFollowUpDays(cmd.FollowUp.Days) {
		return msgDaysRequired, nil
	}

	agent, err := uc.Resolver.Agent(ctx, agentPhone)
	if err != nil {
		return "", err
	}

	lead, err := entity.NewLead(agent.ID, cmd.Name, cmd.Email, cmd.Phone, cmd.Status, leadSourceSMS)
	if err != nil {
		return "", NewValidationError(err.Error())
	}
	now := uc.now()
	lead.CreatedAt, lead.UpdatedAt = now, now

	// The follow-up entry goes in with the insert so creation and follow-up
	// are one write.
	days := 0
	if cmd.FollowUp != nil && cmd.FollowUp.Days > 0 {
		days = cmd.FollowUp.Days
		lead.FollowUps = append(lead.FollowUps, entity.FollowUp{
			ScheduledDate: now.AddDate(0, 0, days),
			CreatedAt:     now,
		})
	}

	if err := uc.Leads.Create(ctx, lead); err != nil {
		return "", NewTransientError("create lead", err)
	}

	uc.emit(ctx, EventCreate, lead)
	if days > 0 {
		uc.scheduleFollowUp(ctx, agent, lead, days)
	}
	uc.notifyCreated(ctx, *agent, *lead)

	return createdReply(lead, days, uc.DashboardURL), nil
}

func (uc *ExecuteCommandUseCase) updateLead(ctx context.Context, agentPhone string, cmd command.Command) (string, error) {
	if cmd.Identifier == "" {
		return msgUpdateIDRequired, nil
	}
	if len(cmd.Updates) == 0 {
		return msgUpdateFields, nil
	}

	agent, lead, reply, err := uc.resolve(ctx, agentPhone, cmd)
	if reply != "" || err != nil {
		return reply, err
	}

	var patch entity.LeadPatch
	fields := make([]string, 0, len(cmd.Updates))
	for _, u := range cmd.Updates {
		value := u.Value
		switch u.Field {
		case command.FieldStatus:
			st, ok := entity.ParseLeadStatus(value)
			if !ok {
				return "", NewValidationError("invalid status: " + value)
			}
			patch.Status = &st
		case command.FieldEmail:
			patch.Email = &value
		case command.FieldPhone:
			patch.Phone = &value
		default:
			continue
		}
		fields = append(fields, string(u.Field))
	}

	updated, err := uc.Leads.Update(ctx, agent.ID, lead.ID, patch)
	if err != nil {
		return "", NewTransientError("update lead", err)
	}
	if updated == nil {
		return notFoundReply(cmd.Identifier), nil
	}

	uc.emit(ctx, EventUpdate, updated)
	return updatedReply(updated, fields, uc.DashboardURL), nil
}

func (uc *ExecuteCommandUseCase) setFollowUp(ctx context.Context, agentPhone string, cmd command.Command) (string, error) {
	if cmd.Identifier == "" {
		return msgFollowUpIDRequired, nil
	}
	if cmd.FollowUp == nil || !command.ValidFollowUpDays(cmd.FollowUp.Days) {
		return msgDaysRequired, nil
	}

	agent, lead, reply, err := uc.resolve(ctx, agentPhone, cmd)
	if reply != "" || err != nil {
		return reply, err
	}

	now := uc.now()
	date := now.AddDate(0, 0, cmd.FollowUp.Days)
	updated, err := uc.Leads.Update(ctx, agent.ID, lead.ID, entity.LeadPatch{
		AppendFollowUp: &entity.FollowUp{ScheduledDate: date, CreatedAt: now},
	})
	if err != nil {
		return "", NewTransientError("add follow-up", err)
	}
	if updated == nil {
		return notFoundReply(cmd.Identifier), nil
	}

	uc.scheduleFollowUp(ctx, agent, updated, cmd.FollowUp.Days)
	uc.emit(ctx, EventUpdate, updated)
	return followUpReply(updated, date, uc.DashboardURL), nil
}

func (uc *ExecuteCommandUseCase) getLeadStatus(ctx context.Context, agentPhone string, cmd command.Command) (string, error) {
	if cmd.Identifier == "" {
		return msgStatusIDRequired, nil
	}

	_, lead, reply, err := uc.resolve(ctx, agentPhone, cmd)
	if reply != "" || err != nil {
		return reply, err
	}
	return statusReply(lead, uc.location(), uc.DashboardURL), nil
}

func (uc *ExecuteCommandUseCase) listLeads(ctx context.Context, agentPhone string, cmd command.Command) (string, error) {
	agent, err := uc.Resolver.Agent(ctx, agentPhone)
	if err != nil {
		return "", err
	}

	q := entity.LeadQuery{AgentID: agent.ID, Limit: 1}
	if st, ok := entity.ParseLeadStatus(cmd.StatusFilter); ok {
		q.Status = st
	}

	leads, err := uc.Leads.FindMany(ctx, q)
	if err != nil {
		return "", NewTransientError("list leads", err)
	}
	if len(leads) == 0 {
		return msgNoLeads, nil
	}
	return latestLeadReply(leads[0], uc.location(), uc.DashboardURL), nil
}

func (uc *ExecuteCommandUseCase) sendLink(ctx context.Context, agentPhone string, cmd command.Command, label, link string) (string, error) {
	if cmd.Identifier == "" {
		return linkUsageReply(label), nil
	}
	if link == "" {
		return linkNotConfiguredReply(label), nil
	}

	_, lead, reply, err := uc.resolve(ctx, agentPhone, cmd)
	if reply != "" || err != nil {
		return reply, err
	}
	if lead.Phone == "" {
		return leadWithoutPhoneReply(lead), nil
	}

	if uc.Scheduler == nil {
		return "", NewConfigurationError("no SMS transport configured")
	}
	if err := uc.Scheduler.ScheduleMessage(ctx, lead.Phone, linkMessage(lead, label, link), 0); err != nil {
		return "", NewTransientError("send "+label+" link", err)
	}

	channels := []string{"SMS"}
	if lead.Email != "" && uc.EmailService != nil {
		if err := uc.EmailService.SendLink(lead.Email, lead.Name, label, link); err != nil {
			uc.Logger.Warn().Err(err).Str("lead_id", lead.ID).Msg("link email failed")
		} else {
			channels = append(channels, "email")
		}
	}
	return linkSentReply(label, lead, channels), nil
}

// resolve loads the sender's agent and the lead named by cmd. A non-empty reply
// means the lookup ended in a user-facing answer (not found, ambiguous).
func (uc *ExecuteCommandUseCase) resolve(ctx context.Context, agentPhone string, cmd command.Command) (*entity.Agent, *entity.Lead, string, error) {
	agent, err := uc.Resolver.Agent(ctx, agentPhone)
	if err != nil {
		return nil, nil, "", err
	}

	lead, err := uc.Resolver.Resolve(ctx, agent.ID, cmd.Identifier, cmd.IdentifierType)
	if err != nil {
		var de *DomainError
		if errors.As(err, &de) {
			switch de.Code {
			case CodeNotFound:
				return nil, nil, notFoundReply(cmd.Identifier), nil
			case CodeAmbiguous:
				return nil, nil, ambiguousReply(de.Count, de.Label, de.Identifier), nil
			}
		}
		return nil, nil, "", err
	}
	return agent, lead, "", nil
}

func (uc *ExecuteCommandUseCase) scheduleFollowUp(ctx context.Context, agent *entity.Agent, lead *entity.Lead, days int) {
	log := uc.Logger.With().Str("lead_id", lead.ID).Int("days", days).Logger()
	if lead.Phone == "" {
		log.Info().Msg("lead has no phone, follow-up notification skipped")
		return
	}
	if uc.Scheduler == nil {
		log.Warn().Msg("no notification scheduler configured")
		return
	}

	delay := time.Duration(days) * 24 * time.Hour
	if err := uc.Scheduler.ScheduleMessage(ctx, lead.Phone, followUpNotice(lead, agent), delay); err != nil {
		log.Error().Err(err).Msg("failed to schedule follow-up notification")
	}
}

func (uc *ExecuteCommandUseCase) emit(ctx context.Context, kind EventKind, lead *entity.Lead) {
	if uc.Events == nil {
		return
	}
	if err := uc.Events.Emit(ctx, kind, lead); err != nil {
		uc.Logger.Warn().Err(err).Str("lead_id", lead.ID).Str("event", string(kind)).Msg("failed to emit lead event")
	}
}

// notifyCreated fires the welcome SMS and the agent alert email in the
// background. Failures are only logged.
func (uc *ExecuteCommandUseCase) notifyCreated(ctx context.Context, agent entity.Agent, lead entity.Lead) {
	sendWelcome := uc.WelcomeMessage != "" && lead.Phone != "" && uc.Scheduler != nil
	sendAlert := uc.EmailService != nil && agent.HasRealEmail()
	if !sendWelcome && !sendAlert {
		return
	}

	ctx = context.WithoutCancel(ctx)
	go func() {
		if sendWelcome {
			body := strings.ReplaceAll(uc.WelcomeMessage, "{name}", firstName(lead.Name))
			if err := uc.Scheduler.ScheduleMessage(ctx, lead.Phone, body, 0); err != nil {
				uc.Logger.Warn().Err(err).Str("lead_id", lead.ID).Msg("welcome SMS failed")
			}
		}
		if sendAlert {
			if err := uc.EmailService.SendNewLeadAlert(agent.Email, agent.Name, &lead); err != nil {
				uc.Logger.Warn().Err(err).Str("lead_id", lead.ID).Msg("new lead alert email failed")
			}
		}
	}()
}

func (uc *ExecuteCommandUseCase) now() time.Time {
	if uc.Now != nil {
		return uc.Now().In(uc.location())
	}
	return time.Now().In(uc.location())
}

func (uc *ExecuteCommandUseCase) location() *time.Location {
	if uc.Location != nil {
		return uc.Location
	}
	return time.UTC
}

// replyForError maps any failure to one of a few fixed replies. Unknown
// shapes land in the generic bucket.
func replyForError(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		switch de.Code {
		case CodeAmbiguous:
			return ambiguousReply(de.Count, de.Label, de.Identifier)
		case CodeNotFound:
			return msgGenericNotFound
		case CodeAccount:
			return msgAccountIssue
		case CodeValidation:
			return msgMissingInfo
		case CodeConfiguration:
			return msgConfiguration
		}
	}
	return genericErrorReply(err)
}
