package testutil

// AcmeFixture is a startup with one round, three contacts, two projects,
// three tasks and two artifacts. Several tests and the golden view share
// it, so changes here mean regenerating testdata/golden files.
func AcmeFixture() Fixture {
	return Fixture{
		Rows: []Row{
			V("Companies",
				"id", "c1",
				"Company_Name", "Acme Robotics",
				"Company_Type", "Startup",
				"One_Liner", "Warehouse robots",
				"Status", "Active",
				"Website", "acme.example",
				"Date_of_Incorporation", "2021-04-01",
				"Amount_Raised_AUMs", 2500000.0,
				"Rounds_Funds_Count", 2,
				"Pax", 14,
			),
			V("Opportunities",
				"id", "o1",
				"Venture_Oppty_Name", "Acme Seed",
				"Round_Stage", "Seed",
				"Investment_Ask", 500000,
				"Pipeline_Stage", "Diligence",
			),
			V("Opportunities", "id", "o2", "Venture_Oppty_Name", "Acme Series A"),
			V("Contacts", "id", "p2", "Name", "Zoe Park", "Role", "CEO"),
			V("Contacts", "id", "p1", "Name", "Ada Chen", "Role", "CTO", "Email", "ada@acme.example"),
			V("Contacts", "id", "p3", "Role", "Advisor"),
			V("Projects", "id", "pr1", "Project_Name", "Series A prep", "Status", "Open"),
			V("Projects", "id", "pr2", "Project_Name", "Board deck", "Status", "Open"),
			V("Tasks", "id", "t2", "Task_Name", "Send memo", "Due_Date", "2024-02-01"),
			V("Tasks", "id", "t1", "Task_Name", "Call founders", "Due_Date", "2024-01-01"),
			V("Tasks", "id", "t3", "Task_Name", "Backlog item"),
			V("Artifacts",
				"artifact_id", "a1",
				"opportunity_id", "o1",
				"title", "Pitch deck",
				"artifact_type", "deck",
				"status", "received",
				"created_at", "2024-01-05T10:00:00.000000000Z",
			),
			V("Artifacts",
				"artifact_id", "a2",
				"opportunity_id", "c1",
				"title", "Cap table",
				"artifact_type", "spreadsheet",
				"created_at", "2024-01-03T10:00:00.000000000Z",
			),
			V("Artifacts",
				"artifact_id", "a9",
				"opportunity_id", "elsewhere",
				"title", "Unrelated",
				"created_at", "2024-01-01T10:00:00.000000000Z",
			),
		},
		Edges: []Edge{
			E("Companies_Opportunities_has_rounds", "c1", "o2"),
			E("Companies_Opportunities_has_rounds", "c1", "o1"),
			E("Contacts_Companies_founders", "p2", "c1"),
			E("Companies_Contacts_current_company", "c1", "p1"),
			E("Contacts_Companies_related_contacts", "p3", "c1"),
			E("Contacts_Companies_founders", "p1", "c1"),
			E("Companies_Projects_projects", "c1", "pr1"),
			E("Projects_Companies_related_companies", "pr2", "c1"),
			E("Companies_Tasks_tasks", "c1", "t1"),
			E("Companies_Tasks_tasks", "c1", "t2"),
			E("Tasks_Companies_related_companies", "t3", "c1"),
		},
	}
}
