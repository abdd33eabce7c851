package backlog

// Backlog API v2 resource types. Only the fields the bot reads are declared;
// everything else in the API responses is ignored.

type User struct {
	ID     int64  `json:"id"`
	UserID string `json:"userId"`
	Name   string `json:"name"`
}

type NamedValue struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Issue struct {
	ID          int64       `json:"id"`
	IssueKey    string      `json:"issueKey"`
	Summary     string      `json:"summary"`
	Description string      `json:"description"`
	Status      *NamedValue `json:"status"`
	Priority    *NamedValue `json:"priority"`
	Assignee    *User       `json:"assignee"`
	DueDate     string      `json:"dueDate"`
}

type Comment struct {
	ID          int64  `json:"id"`
	Content     string `json:"content"`
	Created     string `json:"created"`
	CreatedUser *User  `json:"createdUser"`
}

type WikiProject struct {
	ProjectKey string `json:"projectKey"`
}

type Wiki struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Content     string       `json:"content"`
	Project     *WikiProject `json:"project"`
	Created     string       `json:"created"`
	Updated     string       `json:"updated"`
	CreatedUser *User        `json:"createdUser"`
	UpdatedUser *User        `json:"updatedUser"`
}

type Attachment struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}
