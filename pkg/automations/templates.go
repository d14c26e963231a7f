package automations

import "github.com/asklab/relay/pkg/models"

// Template is a starter definition users copy into a new automation or
// preset. Templates are compiled in and read-only.
type Template struct {
	Key      string                `json:"key"`
	Snapshot models.PresetSnapshot `json:"snapshot"`
}

func intPtr(v int) *int { return &v }

// StarterTemplates returns the built-in starter catalog.
func StarterTemplates() []Template {
	return []Template{
		{
			Key: "task-on-tool-errors",
			Snapshot: models.PresetSnapshot{
				Name:        "Create Task On Tool Errors",
				Description: "Creates a follow-up chat task whenever an agent response includes tool errors.",
				Trigger:     models.TriggerSpec{Trigger: models.EventTrigger{EventType: "ask_agent_completed"}},
				Conditions:  models.ConditionSet{ToolErrorsMin: intPtr(1)},
				Action: models.Action{
					Type: "create_chat_task",
					Params: map[string]any{
						"title":       "Investigate tool failures in {{chat_id}}",
						"description": "Agent answer had {{tool_errors}} tool errors.\n\nQuestion: {{question}}",
						"priority":    "high",
					},
				},
				CooldownSec: 120,
				RunAccess:   models.RunAccessMemberRunnable,
				Tags:        []string{"reliability", "ops"},
			},
		},
		{
			Key: "connector-alert-task",
			Snapshot: models.PresetSnapshot{
				Name:        "Connector Health Alert Task",
				Description: "Creates a task when connector health checks report failures.",
				Trigger:     models.TriggerSpec{Trigger: models.EventTrigger{EventType: "connector_health_checked"}},
				Conditions:  models.ConditionSet{FailedConnectorsMin: intPtr(1)},
				Action: models.Action{
					Type: "create_chat_task",
					Params: map[string]any{
						"title":       "Connector health degraded",
						"description": "Failed connectors: {{failed_connectors}} / {{total_connectors}}",
					},
				},
				CooldownSec: 300,
				RunAccess:   models.RunAccessMemberRunnable,
				Tags:        []string{"connectors", "ops"},
			},
		},
		{
			Key: "ask-clarification-on-errors",
			Snapshot: models.PresetSnapshot{
				Name:        "Ask Clarification On Repeated Failures",
				Description: "Requests user input when tool errors happen during an answer.",
				Trigger:     models.TriggerSpec{Trigger: models.EventTrigger{EventType: "ask_agent_completed"}},
				Conditions:  models.ConditionSet{ToolErrorsMin: intPtr(1)},
				Action: models.Action{
					Type: "request_user_input",
					Params: map[string]any{
						"chat_id":     "{{chat_id}}",
						"prompt":      "I saw tool errors while processing your request. Should I retry with a different approach?",
						"answer_mode": "single_choice",
						"options":     []string{"Retry now", "Explain errors first", "Skip retries"},
					},
				},
				CooldownSec: 300,
				RunAccess:   models.RunAccessMemberRunnable,
				Tags:        []string{"ux", "reliability"},
			},
		},
		{
			Key: "keyword-hotword-task",
			Snapshot: models.PresetSnapshot{
				Name:        "Create Task On Hotword",
				Description: "Creates a task when a keyword appears in the user question.",
				Trigger:     models.TriggerSpec{Trigger: models.EventTrigger{EventType: "ask_agent_completed"}},
				Conditions:  models.ConditionSet{KeywordContains: []string{"urgent", "blocker"}},
				Action: models.Action{
					Type: "create_chat_task",
					Params: map[string]any{
						"title":       "Follow up on urgent request",
						"description": "Detected keyword in question: {{question}}",
					},
				},
				CooldownSec: 120,
				RunAccess:   models.RunAccessMemberRunnable,
				Tags:        []string{"triage"},
			},
		},
		{
			Key: "daily-summary-note",
			Snapshot: models.PresetSnapshot{
				Name:        "Daily Summary Reminder",
				Description: "Adds a reminder note once a day in the latest active chat.",
				Trigger:     models.TriggerSpec{Trigger: models.DailyTrigger{Hour: 9, Minute: 0}},
				Action: models.Action{
					Type: "append_chat_message",
					Params: map[string]any{
						"role":    "assistant",
						"content": "Daily automation reminder: review open tasks and unresolved questions.",
					},
				},
				RunAccess: models.RunAccessMemberRunnable,
				Tags:      []string{"productivity"},
			},
		},
		{
			Key: "weekday-standup-title",
			Snapshot: models.PresetSnapshot{
				Name:        "Weekday Standup Chat Title",
				Description: "Renames the standup chat on weekday mornings.",
				Trigger: models.TriggerSpec{Trigger: models.WeeklyTrigger{
					Hour:     8,
					Minute:   30,
					Weekdays: []models.Weekday{models.Monday, models.Tuesday, models.Wednesday, models.Thursday, models.Friday},
				}},
				Action: models.Action{
					Type:   "set_chat_title",
					Params: map[string]any{"title": "Standup"},
				},
				RunAccess: models.RunAccessMemberRunnable,
				Tags:      []string{"productivity"},
			},
		},
		{
			Key: "escalate-on-failure",
			Snapshot: models.PresetSnapshot{
				Name:        "Escalate Failed Automations",
				Description: "Posts a chat note when another automation fails.",
				Trigger:     models.TriggerSpec{Trigger: models.EventTrigger{EventType: "automation.run.failed"}},
				Action: models.Action{
					Type: "append_chat_message",
					Params: map[string]any{
						"role":    "system",
						"content": "Automation {{automation_id}} failed: {{error}}",
					},
				},
				CooldownSec: 600,
				RunAccess:   models.RunAccessAdminOnly,
				Tags:        []string{"reliability"},
			},
		},
		{
			Key: "manual-log-check",
			Snapshot: models.PresetSnapshot{
				Name:        "Manual Log Check",
				Description: "A manual automation that writes a log line, for verifying the pipeline.",
				Trigger:     models.TriggerSpec{Trigger: models.ManualTrigger{}},
				Action: models.Action{
					Type:   "log",
					Params: map[string]any{"message": "Automation pipeline check", "level": "info"},
				},
				RunAccess: models.RunAccessAdminOnly,
				Tags:      []string{"manual", "ops"},
			},
		},
	}
}
