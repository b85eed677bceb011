package store

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

const (
	usersTable      = "users"
	contentsTable   = "contents"
	videosTable     = "videos"
	questionsTable  = "questions"
	watchTable      = "watch_events"
	responsesTable  = "response_events"
	llmEventsTable  = "llm_request_events"
	sequenceTable   = "global_sequence"
	defaultInterval = 3
)

var (
	usersColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Unique: true},
		{Name: "device_id", Type: field.TypeString, Unique: true},
		{Name: "name", Type: field.TypeString},
		{Name: "age", Type: field.TypeInt},
		{Name: "interests", Type: field.TypeJSON},
		{Name: "education_level", Type: field.TypeString},
		{Name: "checkpoint_interval", Type: field.TypeInt},
		{Name: "watched_count", Type: field.TypeInt64},
		{Name: "checkpoint_state", Type: field.TypeString},
		{Name: "last_active_at", Type: field.TypeTime, Nullable: true},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "updated_at", Type: field.TypeTime},
	}
	UsersTable = &schema.Table{
		Name:       usersTable,
		Columns:    usersColumns,
		PrimaryKey: []*schema.Column{usersColumns[0]},
	}

	contentsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Unique: true},
		{Name: "title", Type: field.TypeString},
		{Name: "description", Type: field.TypeString},
		{Name: "audience", Type: field.TypeString},
		{Name: "category", Type: field.TypeString},
		{Name: "difficulty", Type: field.TypeInt},
		{Name: "order_index", Type: field.TypeInt},
		{Name: "active", Type: field.TypeBool},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "updated_at", Type: field.TypeTime},
	}
	ContentsTable = &schema.Table{
		Name:       contentsTable,
		Columns:    contentsColumns,
		PrimaryKey: []*schema.Column{contentsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "content_order_index", Columns: []*schema.Column{contentsColumns[6]}},
		},
	}

	videosColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Unique: true},
		{Name: "content_id", Type: field.TypeString},
		{Name: "external_id", Type: field.TypeString},
		{Name: "title", Type: field.TypeString},
		{Name: "description", Type: field.TypeString},
		{Name: "duration_seconds", Type: field.TypeInt},
		{Name: "checkpoint_interval", Type: field.TypeInt},
		{Name: "order_index", Type: field.TypeInt},
		{Name: "expected_concepts", Type: field.TypeJSON},
		{Name: "view_count", Type: field.TypeInt64},
		{Name: "active", Type: field.TypeBool},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "updated_at", Type: field.TypeTime},
	}
	VideosTable = &schema.Table{
		Name:       videosTable,
		Columns:    videosColumns,
		PrimaryKey: []*schema.Column{videosColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "videos_contents_videos",
				Columns:    []*schema.Column{videosColumns[1]},
				RefColumns: []*schema.Column{contentsColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{Name: "video_content_id_order_index", Columns: []*schema.Column{videosColumns[1], videosColumns[7]}},
		},
	}

	questionsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Unique: true},
		{Name: "content_id", Type: field.TypeString},
		{Name: "prompt", Type: field.TypeString, Size: 2147483647},
		{Name: "order_index", Type: field.TypeInt},
		{Name: "expected_concepts", Type: field.TypeJSON},
		{Name: "difficulty", Type: field.TypeInt},
		{Name: "points", Type: field.TypeInt},
		{Name: "generated_by", Type: field.TypeString},
		{Name: "active", Type: field.TypeBool},
		{Name: "created_at", Type: field.TypeTime},
	}
	QuestionsTable = &schema.Table{
		Name:       questionsTable,
		Columns:    questionsColumns,
		PrimaryKey: []*schema.Column{questionsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "questions_contents_questions",
				Columns:    []*schema.Column{questionsColumns[1]},
				RefColumns: []*schema.Column{contentsColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{Name: "question_content_id_order_index", Columns: []*schema.Column{questionsColumns[1], questionsColumns[3]}},
		},
	}

	watchColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Unique: true},
		{Name: "sequence", Type: field.TypeInt64, Unique: true},
		{Name: "user_id", Type: field.TypeString},
		{Name: "video_id", Type: field.TypeString},
		{Name: "completed", Type: field.TypeBool},
		{Name: "watched_at", Type: field.TypeTime},
	}
	WatchEventsTable = &schema.Table{
		Name:       watchTable,
		Columns:    watchColumns,
		PrimaryKey: []*schema.Column{watchColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "watch_events_users_watches",
				Columns:    []*schema.Column{watchColumns[2]},
				RefColumns: []*schema.Column{usersColumns[0]},
				OnDelete:   schema.Cascade,
			},
			{
				Symbol:     "watch_events_videos_watches",
				Columns:    []*schema.Column{watchColumns[3]},
				RefColumns: []*schema.Column{videosColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{Name: "watchevent_user_id_video_id", Columns: []*schema.Column{watchColumns[2], watchColumns[3]}},
		},
	}

	responsesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Unique: true},
		{Name: "sequence", Type: field.TypeInt64, Unique: true},
		{Name: "user_id", Type: field.TypeString},
		{Name: "question_id", Type: field.TypeString},
		{Name: "video_id", Type: field.TypeString, Nullable: true},
		{Name: "answer_kind", Type: field.TypeString},
		{Name: "answer_text", Type: field.TypeString, Size: 2147483647},
		{Name: "audio_ref", Type: field.TypeString},
		{Name: "status", Type: field.TypeString},
		{Name: "score", Type: field.TypeFloat64, Nullable: true},
		{Name: "passed", Type: field.TypeBool, Nullable: true},
		{Name: "concepts_identified", Type: field.TypeJSON, Nullable: true},
		{Name: "concepts_missing", Type: field.TypeJSON, Nullable: true},
		{Name: "feedback", Type: field.TypeString, Size: 2147483647},
		{Name: "evaluated_at", Type: field.TypeTime, Nullable: true},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "updated_at", Type: field.TypeTime},
	}
	ResponseEventsTable = &schema.Table{
		Name:       responsesTable,
		Columns:    responsesColumns,
		PrimaryKey: []*schema.Column{responsesColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "response_events_users_responses",
				Columns:    []*schema.Column{responsesColumns[2]},
				RefColumns: []*schema.Column{usersColumns[0]},
				OnDelete:   schema.Cascade,
			},
			{
				Symbol:     "response_events_questions_responses",
				Columns:    []*schema.Column{responsesColumns[3]},
				RefColumns: []*schema.Column{questionsColumns[0]},
				OnDelete:   schema.Cascade,
			},
			{
				Symbol:     "response_events_videos_responses",
				Columns:    []*schema.Column{responsesColumns[4]},
				RefColumns: []*schema.Column{videosColumns[0]},
				OnDelete:   schema.SetNull,
			},
		},
		Indexes: []*schema.Index{
			{Name: "responseevent_user_id_question_id", Columns: []*schema.Column{responsesColumns[2], responsesColumns[3]}},
			{Name: "responseevent_status", Columns: []*schema.Column{responsesColumns[8]}},
		},
	}

	llmEventsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "sequence", Type: field.TypeInt64, Unique: true},
		{Name: "timestamp", Type: field.TypeTime},
		{Name: "provider", Type: field.TypeString},
		{Name: "model", Type: field.TypeString},
		{Name: "purpose", Type: field.TypeString},
		{Name: "input_tokens", Type: field.TypeInt},
		{Name: "output_tokens", Type: field.TypeInt},
		{Name: "latency_ms", Type: field.TypeInt64},
		{Name: "success", Type: field.TypeBool},
		{Name: "error_message", Type: field.TypeString},
		{Name: "request_body", Type: field.TypeString, Size: 2147483647},
		{Name: "response_body", Type: field.TypeString, Size: 2147483647},
	}
	LLMRequestEventsTable = &schema.Table{
		Name:       llmEventsTable,
		Columns:    llmEventsColumns,
		PrimaryKey: []*schema.Column{llmEventsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "llmrequestevent_purpose", Columns: []*schema.Column{llmEventsColumns[5]}},
			{Name: "llmrequestevent_timestamp", Columns: []*schema.Column{llmEventsColumns[2]}},
		},
	}

	// Tables lists every table managed by auto-migration.
	Tables = []*schema.Table{
		UsersTable,
		ContentsTable,
		VideosTable,
		QuestionsTable,
		WatchEventsTable,
		ResponseEventsTable,
		LLMRequestEventsTable,
	}
)

func init() {
	VideosTable.ForeignKeys[0].RefTable = ContentsTable
	QuestionsTable.ForeignKeys[0].RefTable = ContentsTable
	WatchEventsTable.ForeignKeys[0].RefTable = UsersTable
	WatchEventsTable.ForeignKeys[1].RefTable = VideosTable
	ResponseEventsTable.ForeignKeys[0].RefTable = UsersTable
	ResponseEventsTable.ForeignKeys[1].RefTable = QuestionsTable
	ResponseEventsTable.ForeignKeys[2].RefTable = VideosTable
}

// migrate creates or updates all tables. Columns and tables are never
// dropped.
func migrate(ctx context.Context, drv dialect.Driver) error {
	m, err := schema.NewMigrate(drv)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	return m.Create(ctx, Tables...)
}
