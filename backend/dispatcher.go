package backend

import (
	"fmt"
	"path/filepath"

	"github.com/openmdb/mediadb"
)

// Handle executes one command and delivers its replies through sink.
// A nil sink falls back to the backend's event sink. Commands are
// processed one at a time; callers serialize.
func (b *Backend) Handle(cmd mediadb.Command, sink mediadb.EventSink) {
	if sink == nil {
		sink = b.sink
	}
	if err := b.dispatch(cmd, sink); err != nil {
		b.log.Error().Err(err).Str("verb", cmd.Verb).Msg("Command failed")
		b.reply(sink, mediadb.Event{
			Verb:          mediadb.EvError,
			CorrelationID: cmd.CorrelationID,
			Path:          cmd.Path,
			Err:           err,
		})
	}
}

func (b *Backend) dispatch(cmd mediadb.Command, sink mediadb.EventSink) error {
	switch cmd.Verb {
	case mediadb.CmdBrowseObject:
		obj, err := b.BrowseObject(cmd.Path)
		if err != nil {
			return err
		}
		b.reply(sink, mediadb.Event{
			Verb:          mediadb.EvObject,
			CorrelationID: cmd.CorrelationID,
			Path:          cmd.Path,
			Objects:       []mediadb.Dict{obj},
			Total:         1,
			Last:          true,
		})
		return nil

	case mediadb.CmdBrowseChildren:
		return b.BrowseChildren(cmd, sink)

	case mediadb.CmdRescan:
		b.reply(sink, mediadb.Event{Verb: mediadb.EvRescanStarted, CorrelationID: cmd.CorrelationID})
		if err := b.Rescan(); err != nil {
			return err
		}
		b.reply(sink, mediadb.Event{Verb: mediadb.EvRescanDone, CorrelationID: cmd.CorrelationID})
		return nil

	case mediadb.CmdAddDirectory:
		return b.addDirectories(cmd, cmd.Directories, sink)

	case mediadb.CmdDelDirectory:
		return b.delDirectories(cmd, cmd.Directories, sink)

	case mediadb.CmdSetDirectories:
		return b.setDirectories(cmd, sink)
	}

	return fmt.Errorf("unknown command %q", cmd.Verb)
}

func (b *Backend) addDirectories(cmd mediadb.Command, dirs []string, sink mediadb.EventSink) error {
	current, err := b.Directories()
	if err != nil {
		return err
	}

	var added []string
	for _, dir := range dirs {
		dir = filepath.Clean(dir)
		if contains(current, dir) {
			continue
		}
		if err = b.AddDirectory(dir); err != nil {
			return err
		}
		added = append(added, dir)
	}

	if len(added) > 0 {
		// The echo carries the complete directory list so listeners
		// can persist the new configuration as-is.
		all, err := b.Directories()
		if err != nil {
			return err
		}
		b.reply(sink, mediadb.Event{
			Verb:          mediadb.EvDirectoriesAdded,
			CorrelationID: cmd.CorrelationID,
			Objects:       dirDicts(all),
		})
	}
	return nil
}

func (b *Backend) delDirectories(cmd mediadb.Command, dirs []string, sink mediadb.EventSink) error {
	current, err := b.Directories()
	if err != nil {
		return err
	}

	for _, dir := range dirs {
		dir = filepath.Clean(dir)
		if !contains(current, dir) {
			continue
		}
		if err = b.DeleteDirectory(dir); err != nil {
			return err
		}
		b.reply(sink, mediadb.Event{
			Verb:          mediadb.EvDirectoryDeleted,
			CorrelationID: cmd.CorrelationID,
			Path:          dir,
		})
	}
	return nil
}

// setDirectories reconciles the registered scan directories against
// the requested set: missing ones are added, extra ones removed.
func (b *Backend) setDirectories(cmd mediadb.Command, sink mediadb.EventSink) error {
	current, err := b.Directories()
	if err != nil {
		return err
	}

	wanted := make([]string, 0, len(cmd.Directories))
	for _, dir := range cmd.Directories {
		wanted = append(wanted, filepath.Clean(dir))
	}

	var add, del []string
	for _, dir := range wanted {
		if !contains(current, dir) {
			add = append(add, dir)
		}
	}
	for _, dir := range current {
		if !contains(wanted, dir) {
			del = append(del, dir)
		}
	}

	if err = b.addDirectories(cmd, add, sink); err != nil {
		return err
	}
	return b.delDirectories(cmd, del, sink)
}

func contains(list []string, v string) bool {
	for _, e := range list {
		if e == v {
			return true
		}
	}
	return false
}

func dirDicts(dirs []string) []mediadb.Dict {
	out := make([]mediadb.Dict, len(dirs))
	for i, dir := range dirs {
		out[i] = mediadb.Dict{mediadb.FieldURI: dir}
	}
	return out
}
