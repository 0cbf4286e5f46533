package mcp

import "github.com/mark3labs/mcp-go/mcp"

var pickGeneralToolDef = mcp.NewTool("winner_pick_general",
	mcp.WithDescription("Pick a random winner among a profile's current followers."),
	mcp.WithString("username", mcp.Required(), mcp.Description("Profile username, with or without @")),
	mcp.WithNumber("count", mcp.Description("How many followers to draw from (default 50, max 200)")),
)

var pickOrientationToolDef = mcp.NewTool("winner_pick_orientation",
	mcp.WithDescription("Pick a random winner among followers gained within a recent time window. "+
		"The first call for a profile records a baseline and returns NO_BASELINE_AVAILABLE; call again after the window."),
	mcp.WithString("username", mcp.Required(), mcp.Description("Profile username, with or without @")),
	mcp.WithString("window", mcp.Required(), mcp.Description("Lookback window: hours (\"1.5\") or a duration (\"30m\", \"2h\")")),
	mcp.WithString("policy",
		mcp.Description("Baseline policy (default from config)"),
		mcp.Enum("nearest", "within_window", "always_capture"),
	),
	mcp.WithBoolean("full_baseline", mcp.Description("Record follower identities when a baseline is captured")),
	mcp.WithNumber("seed", mcp.Description("Seed for a reproducible draw")),
)

var captureToolDef = mcp.NewTool("snapshot_capture",
	mcp.WithDescription("Record a follower snapshot now, to serve as a later baseline."),
	mcp.WithString("username", mcp.Required(), mcp.Description("Profile username, with or without @")),
	mcp.WithBoolean("full", mcp.Description("Record follower identities, not just the count")),
)

var listToolDef = mcp.NewTool("snapshot_list",
	mcp.WithDescription("List stored snapshots of a profile, newest first."),
	mcp.WithString("username", mcp.Required(), mcp.Description("Profile username")),
	mcp.WithNumber("limit", mcp.Description("Page size (default 20, max 100)")),
	mcp.WithNumber("offset", mcp.Description("Page offset")),
)

var fetchToolDef = mcp.NewTool("snapshot_fetch",
	mcp.WithDescription("Fetch one stored snapshot by id."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Snapshot id")),
	mcp.WithBoolean("include_followers", mcp.Description("Include recorded follower identities")),
)

var subjectsToolDef = mcp.NewTool("snapshot_subjects",
	mcp.WithDescription("List profiles that have stored snapshots."),
)
