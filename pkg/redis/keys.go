package redis

import "strings"

const keyNamespace = "pl"

// ImportJobKey is where an import job context is persisted between invocations.
func (c *Client) ImportJobKey(jobID string) string {
	return key("import_job", jobID)
}

// ImportLockKey guards a price list against concurrent import runs.
func (c *Client) ImportLockKey(priceListID string) string {
	return key("import_lock", priceListID)
}

// ActiveImportKey points at the job currently importing into a price list.
func (c *Client) ActiveImportKey(priceListID string) string {
	return key("import_active", priceListID)
}

// CronLockKey guards a cron sweep against concurrent workers.
func (c *Client) CronLockKey(scope string) string {
	return key("cron_lock", scope)
}

// key joins the namespace and non-blank parts with colons.
func key(parts ...string) string {
	var b strings.Builder
	b.WriteString(keyNamespace)
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		b.WriteByte(':')
		b.WriteString(part)
	}
	return b.String()
}
