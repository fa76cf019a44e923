package cli

// allCommands returns all commands in display order. Dependencies are
// captured via closures in each command constructor, mirroring the
// teacher's allCommands.
func allCommands(deps commandDeps) []*Command {
	return []*Command{
		StoreCmd(deps),
		ListCmd(deps),
		DecodeCmd(deps),
		DeleteCmd(deps),
		WipeCmd(deps),
		ImportCmd(deps),
		WatchCmd(deps),
		DbCmd(deps),
	}
}
