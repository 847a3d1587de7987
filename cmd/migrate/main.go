// Command migrate manages the grocery history schema.
//
// Usage:
//
//	# Apply pending migrations
//	migrate up
//
//	# List migrations and whether each has been applied
//	migrate status
package main

func main() {
	Execute()
}
