package core

import (
	"strings"
)

// CommitType constants for semantic commits.
const (
	CommitTypeFeat     = "feat"
	CommitTypeFix      = "fix"
	CommitTypeDocs     = "docs"
	CommitTypeRefactor = "refactor"
	CommitTypeChore    = "chore"
)

// Footer is appended to every message written by stash.
const Footer = "Powered-by: Stash"

// FormatCommitMessage builds a Conventional Commit message.
//
//	<type>(<scope>): <subject>
//
//	<body>
//
//	Powered-by: Stash
func FormatCommitMessage(ctype, scope, subject, body string) string {
	var sb strings.Builder

	if ctype == "" {
		ctype = CommitTypeChore
	}
	sb.WriteString(ctype)

	if scope != "" {
		sb.WriteString("(")
		sb.WriteString(scope)
		sb.WriteString(")")
	}

	sb.WriteString(": ")
	sb.WriteString(subject)

	if body != "" {
		sb.WriteString("\n\n")
		sb.WriteString(strings.TrimSpace(body))
	}

	sb.WriteString("\n\n")
	sb.WriteString(Footer)

	return sb.String()
}

// AppendFooter appends the footer to an arbitrary message if not present.
func AppendFooter(msg string) string {
	if strings.Contains(msg, Footer) {
		return msg
	}
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	if !strings.HasSuffix(msg, "\n\n") {
		msg += "\n"
	}
	return msg + Footer
}

// AddMessage is the commit message for a newly saved item.
func AddMessage(it Item) string {
	return FormatCommitMessage(CommitTypeFeat, "items", "add "+string(it.Kind)+" "+it.ID, "")
}

// UpdateMessage is the commit message for an overwritten item.
func UpdateMessage(it Item) string {
	return FormatCommitMessage(CommitTypeChore, "items", "update "+it.ID, "")
}

// DeleteMessage is the commit message for a removed item.
func DeleteMessage(id string) string {
	return FormatCommitMessage(CommitTypeChore, "items", "delete "+id, "")
}

// UploadMessage is the commit message for a new asset.
func UploadMessage(name string) string {
	return FormatCommitMessage(CommitTypeFeat, "assets", "upload "+name, "")
}

// DeleteAssetMessage is the commit message for a removed asset.
func DeleteAssetMessage(path string) string {
	return FormatCommitMessage(CommitTypeChore, "assets", "delete "+path, "")
}

// InitMessage is the commit message for container setup.
func InitMessage(container string) string {
	return FormatCommitMessage(CommitTypeChore, "", "initialize "+container, "")
}
