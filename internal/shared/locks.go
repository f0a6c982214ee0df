package shared

import "fmt"

// ExpiryScanLockKey builds the redis key guarding a document expiry scan run.
func ExpiryScanLockKey(day string) string {
	return fmt.Sprintf("documents:expiry-scan:%s:lock", day)
}
