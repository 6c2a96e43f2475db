package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

var stringItems = mcp.Items(map[string]any{"type": "string"})

var createToolDef = mcp.NewTool("client_create",
	mcp.WithDescription("Create a client. It starts as a Lead with no recorded interaction and is placed last in the list."),
	mcp.WithString("full_name", mcp.Required(), mcp.Description("Contact's full name")),
	mcp.WithString("position", mcp.Description("Job title")),
	mcp.WithString("email", mcp.Required(), mcp.Description("Contact email address")),
	mcp.WithString("phone", mcp.Required(), mcp.Description("Phone number, at least 7 digits")),
	mcp.WithString("company_name", mcp.Required(), mcp.Description("Company name")),
	mcp.WithString("industry", mcp.Required(), mcp.Description("Industry")),
	mcp.WithString("company_size", mcp.Required(), mcp.Enum("1-10", "11-50", "51+")),
	mcp.WithNumber("years_in_market", mcp.Description("Years the company has operated")),
	mcp.WithString("website"),
	mcp.WithString("social_media"),
	mcp.WithString("general_goal"),
	mcp.WithString("specific_goals"),
	mcp.WithString("obstacles"),
	mcp.WithString("prior_results"),
	mcp.WithString("location", mcp.Description("Used by client_segment")),
	mcp.WithArray("interests", stringItems, mcp.Description("Used by client_segment")),
	mcp.WithString("purchase_behavior", mcp.Description("Used by client_segment")),
	mcp.WithString("priority", mcp.Required(), mcp.Enum("daily", "weekly", "biweekly", "monthly", "occasional")),
	mcp.WithArray("contact_channels", mcp.Required(), mcp.Items(map[string]any{
		"type": "string",
		"enum": []string{"email", "phone", "whatsapp"},
	}), mcp.Description("At least one channel")),
)

var fetchToolDef = mcp.NewTool("client_fetch",
	mcp.WithDescription("Fetch one client by id."),
	mcp.WithString("id", mcp.Required()),
)

var listToolDef = mcp.NewTool("client_list",
	mcp.WithDescription("List clients in presentation order, one page at a time, optionally filtered by a search query."),
	mcp.WithString("query", mcp.Description("Case-insensitive match on name, company or industry")),
	mcp.WithNumber("page", mcp.Description("1-based page number, clamped to the valid range")),
	mcp.WithNumber("page_size", mcp.Description("Clients per page (default from config)")),
)

var searchToolDef = mcp.NewTool("client_search",
	mcp.WithDescription("Return every client whose name, company or industry contains the query. An empty query matches all."),
	mcp.WithString("query", mcp.Required()),
)

var segmentToolDef = mcp.NewTool("client_segment",
	mcp.WithDescription("Return clients matching every non-empty criterion. An empty predicate matches all."),
	mcp.WithString("location", mcp.Description("Substring of the client's location")),
	mcp.WithString("interests", mcp.Description("Substring of any of the client's interests")),
	mcp.WithString("purchase_behavior", mcp.Description("Substring of the client's purchase behavior")),
)

var stageToolDef = mcp.NewTool("client_stage",
	mcp.WithDescription("Move a client to a pipeline stage. Any stage may follow any other."),
	mcp.WithString("id", mcp.Required()),
	mcp.WithString("stage", mcp.Required(), mcp.Description("Lead, Contacted, Proposal sent or Closed")),
)

var reorderToolDef = mcp.NewTool("client_reorder",
	mcp.WithDescription("Move client from_id to the position of client to_id. Unknown or equal ids leave the order unchanged."),
	mcp.WithString("from_id", mcp.Required()),
	mcp.WithString("to_id", mcp.Required()),
)

var statsToolDef = mcp.NewTool("client_stats",
	mcp.WithDescription("Pipeline statistics and the dashboard summary cards."),
)
