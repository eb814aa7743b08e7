package session

import (
	"context"
	"encoding/json"
	"strings"

	"cargotrack/internal/cargo/models"
	"cargotrack/internal/cargo/service"
	dErrors "cargotrack/pkg/domain-errors"
)

const helpText = "Commands: HELP, PING, USER <name>, " +
	"CREATE_ITEM <s> <r> <a> <owner>, CREATE_CONTAINER <cid> <desc> <type> <lon> <lat>, " +
	"LIST_ITEMS, LIST_CONTAINERS, WATCH <item>, WATCH_CONTAINER <cid>, UNWATCH <item>, UNWATCH_CONTAINER <cid>, " +
	"LOAD <item> <cid>, UNLOAD <item>, MOVE <item> <cid>, COMPLETE <item>, SETLOC <cid> <lon> <lat>, STATUS <item>, " +
	"UPDATE_ITEM <item> <field>=<value>..., UPDATE_CONTAINER <cid> <field>=<value>..., " +
	"DELETE_ITEM <item>, DELETE_CONTAINER <cid>, ATTACH <item>, DETACH <item>, LIST_ATTACHED, " +
	"SETVIEW <top> <left> <bottom> <right>, CLEARVIEW, STATLIST, TRACKER, WAIT_EVENTS, SAVE, QUIT"

func commandTable() map[string]command {
	return map[string]command{
		"HELP": {usage: "HELP", maxArgs: -1, run: func(context.Context, *Session, []string) (Reply, error) {
			return ok("%s", helpText)
		}},
		"PING": {usage: "PING", maxArgs: -1, run: func(context.Context, *Session, []string) (Reply, error) {
			return ok("pong")
		}},
		"USER":              {usage: "USER <name>", minArgs: 1, maxArgs: 1, run: cmdUser},
		"CREATE_ITEM":       {usage: "CREATE_ITEM <sender> <recipient> <address> <owner>", minArgs: 4, maxArgs: -1, run: cmdCreateItem},
		"CREATE_CONTAINER":  {usage: "CREATE_CONTAINER <cid> <desc> <type> <lon> <lat>", minArgs: 5, maxArgs: -1, run: cmdCreateContainer},
		"LIST_ITEMS":        {usage: "LIST_ITEMS", maxArgs: -1, run: cmdListItems},
		"LIST_CONTAINERS":   {usage: "LIST_CONTAINERS", maxArgs: -1, run: cmdListContainers},
		"WATCH":             {usage: "WATCH <item_id>", minArgs: 1, maxArgs: 1, run: cmdWatch},
		"WATCH_CONTAINER":   {usage: "WATCH_CONTAINER <cid>", minArgs: 1, maxArgs: 1, run: cmdWatchContainer},
		"UNWATCH":           {usage: "UNWATCH <item_id>", minArgs: 1, maxArgs: 1, run: cmdUnwatch},
		"UNWATCH_CONTAINER": {usage: "UNWATCH_CONTAINER <cid>", minArgs: 1, maxArgs: 1, run: cmdUnwatchContainer},
		"LOAD":              {usage: "LOAD <item> <cid>", minArgs: 2, maxArgs: 2, run: cmdLoad},
		"UNLOAD":            {usage: "UNLOAD <item_id>", minArgs: 1, maxArgs: 1, run: cmdUnload},
		"MOVE":              {usage: "MOVE <item> <cid>", minArgs: 2, maxArgs: 2, run: cmdMove},
		"SETLOC":            {usage: "SETLOC <cid> <lon> <lat>", minArgs: 3, maxArgs: 3, run: cmdSetLoc},
		"COMPLETE":          {usage: "COMPLETE <item_id>", minArgs: 1, maxArgs: 1, run: cmdComplete},
		"STATUS":            {usage: "STATUS <item_id>", minArgs: 1, maxArgs: 1, run: cmdStatus},
		"UPDATE_ITEM":       {usage: "UPDATE_ITEM <item_id> <field>=<value>...", minArgs: 2, maxArgs: -1, run: cmdUpdateItem},
		"UPDATE_CONTAINER":  {usage: "UPDATE_CONTAINER <cid> <field>=<value>...", minArgs: 2, maxArgs: -1, run: cmdUpdateContainer},
		"DELETE_ITEM":       {usage: "DELETE_ITEM <item_id>", minArgs: 1, maxArgs: 1, run: cmdDeleteItem},
		"DELETE_CONTAINER":  {usage: "DELETE_CONTAINER <cid>", minArgs: 1, maxArgs: 1, run: cmdDeleteContainer},
		"ATTACH":            {usage: "ATTACH <item_id>", minArgs: 1, maxArgs: 1, run: cmdAttach},
		"DETACH":            {usage: "DETACH <item_id>", minArgs: 1, maxArgs: 1, run: cmdDetach},
		"LIST_ATTACHED":     {usage: "LIST_ATTACHED", maxArgs: 0, run: cmdListAttached},
		"SETVIEW":           {usage: "SETVIEW <top> <left> <bottom> <right>", minArgs: 4, maxArgs: 4, run: cmdSetView},
		"CLEARVIEW":         {usage: "CLEARVIEW", maxArgs: 0, run: cmdClearView},
		"STATLIST":          {usage: "STATLIST", maxArgs: 0, run: cmdStatList},
		"TRACKER":           {usage: "TRACKER", maxArgs: 0, run: cmdTracker},
		"WAIT_EVENTS":       {usage: "WAIT_EVENTS", maxArgs: -1, run: cmdWaitEvents},
		"SAVE":              {usage: "SAVE", maxArgs: -1, run: cmdSave},
		"QUIT": {usage: "QUIT", maxArgs: -1, run: func(context.Context, *Session, []string) (Reply, error) {
			return Reply{OK: true, Text: "bye", Close: true}, nil
		}},
	}
}

func cmdUser(ctx context.Context, s *Session, args []string) (Reply, error) {
	name := args[0]
	s.setUser(name)
	if err := s.model.UpdateTracker(ctx, s.tracker, map[string]string{"owner": name}); err != nil {
		s.logger.DebugContext(ctx, "tracker owner not updated", "session_id", s.id, "error", err)
	}
	return ok("hello %s", name)
}

func cmdCreateItem(ctx context.Context, s *Session, args []string) (Reply, error) {
	id, err := s.model.CreateItem(ctx, models.ItemFields{
		Sender:    args[0],
		Recipient: args[1],
		Address:   args[2],
		Owner:     args[3],
	})
	if err != nil {
		return Reply{}, err
	}
	return ok("%s", id)
}

func cmdCreateContainer(ctx context.Context, s *Session, args []string) (Reply, error) {
	loc, err := models.ParseLocation(args[3], args[4])
	if err != nil {
		return Reply{}, err
	}
	spec := service.ContainerSpec{ID: args[0], Description: args[1], Type: args[2], Lon: loc.Lon, Lat: loc.Lat}
	if err := s.model.CreateContainer(ctx, spec); err != nil {
		return Reply{}, err
	}
	return ok("%s", spec.ID)
}

func cmdListItems(ctx context.Context, s *Session, _ []string) (Reply, error) {
	return okJSON(s.model.ListItems(ctx))
}

func cmdListContainers(ctx context.Context, s *Session, _ []string) (Reply, error) {
	return okJSON(s.model.ListContainers(ctx))
}

func cmdWatch(ctx context.Context, s *Session, args []string) (Reply, error) {
	if err := s.model.WatchItem(ctx, s.tracker, args[0]); err != nil {
		return Reply{}, err
	}
	return ok("watching %s", args[0])
}

func cmdWatchContainer(ctx context.Context, s *Session, args []string) (Reply, error) {
	if err := s.model.WatchContainer(ctx, s.tracker, args[0]); err != nil {
		return Reply{}, err
	}
	return ok("watching container %s", args[0])
}

func cmdUnwatch(ctx context.Context, s *Session, args []string) (Reply, error) {
	if err := s.model.UnwatchItem(ctx, s.tracker, args[0]); err != nil {
		return Reply{}, err
	}
	return ok("unwatched %s", args[0])
}

func cmdUnwatchContainer(ctx context.Context, s *Session, args []string) (Reply, error) {
	if err := s.model.UnwatchContainer(ctx, s.tracker, args[0]); err != nil {
		return Reply{}, err
	}
	return ok("unwatched container %s", args[0])
}

func cmdLoad(ctx context.Context, s *Session, args []string) (Reply, error) {
	itemID, cid := args[0], args[1]
	already, err := s.model.LoadItem(ctx, itemID, cid)
	if err != nil {
		return Reply{}, err
	}
	if already {
		return ok("%s already in %s", itemID, cid)
	}
	return ok("loaded %s into %s", itemID, cid)
}

func cmdUnload(ctx context.Context, s *Session, args []string) (Reply, error) {
	if err := s.model.UnloadItem(ctx, args[0]); err != nil {
		return Reply{}, err
	}
	return ok("unloaded %s", args[0])
}

func cmdMove(ctx context.Context, s *Session, args []string) (Reply, error) {
	itemID, cid := args[0], args[1]
	already, err := s.model.MoveItem(ctx, itemID, cid)
	if err != nil {
		return Reply{}, err
	}
	if already {
		return ok("%s already in %s", itemID, cid)
	}
	return ok("moved %s to %s", itemID, cid)
}

func cmdSetLoc(ctx context.Context, s *Session, args []string) (Reply, error) {
	loc, err := models.ParseLocation(args[1], args[2])
	if err != nil {
		return Reply{}, err
	}
	if err := s.model.SetLocation(ctx, args[0], loc.Lon, loc.Lat); err != nil {
		return Reply{}, err
	}
	return ok("moved %s", args[0])
}

func cmdComplete(ctx context.Context, s *Session, args []string) (Reply, error) {
	already, err := s.model.CompleteItem(ctx, args[0])
	if err != nil {
		return Reply{}, err
	}
	if already {
		return ok("%s already complete", args[0])
	}
	return ok("completed %s", args[0])
}

func cmdStatus(ctx context.Context, s *Session, args []string) (Reply, error) {
	view, err := s.model.Item(ctx, args[0])
	if err != nil {
		return Reply{}, err
	}
	return okJSON(view)
}

func cmdUpdateItem(ctx context.Context, s *Session, args []string) (Reply, error) {
	updates, err := parseAssignments("UPDATE_ITEM <item_id> <field>=<value>...", args[1:])
	if err != nil {
		return Reply{}, err
	}
	view, err := s.model.UpdateItem(ctx, args[0], updates)
	if err != nil {
		return Reply{}, err
	}
	return okJSON(view)
}

func cmdUpdateContainer(ctx context.Context, s *Session, args []string) (Reply, error) {
	updates, err := parseAssignments("UPDATE_CONTAINER <cid> <field>=<value>...", args[1:])
	if err != nil {
		return Reply{}, err
	}
	view, err := s.model.UpdateContainer(ctx, args[0], updates)
	if err != nil {
		return Reply{}, err
	}
	return okJSON(view)
}

func cmdDeleteItem(ctx context.Context, s *Session, args []string) (Reply, error) {
	if err := s.model.DeleteItem(ctx, args[0]); err != nil {
		return Reply{}, err
	}
	return ok("deleted %s", args[0])
}

func cmdDeleteContainer(ctx context.Context, s *Session, args []string) (Reply, error) {
	if err := s.model.DeleteContainer(ctx, args[0]); err != nil {
		return Reply{}, err
	}
	return ok("deleted container %s", args[0])
}

func cmdAttach(ctx context.Context, s *Session, args []string) (Reply, error) {
	if err := s.model.Attach(ctx, args[0], s.User()); err != nil {
		return Reply{}, err
	}
	return ok("attached %s", args[0])
}

func cmdDetach(ctx context.Context, s *Session, args []string) (Reply, error) {
	if err := s.model.Detach(ctx, args[0], s.User()); err != nil {
		return Reply{}, err
	}
	return ok("detached %s", args[0])
}

func cmdListAttached(ctx context.Context, s *Session, _ []string) (Reply, error) {
	views, err := s.model.ListAttached(ctx, s.User())
	if err != nil {
		return Reply{}, err
	}
	if views == nil {
		views = []models.ItemView{}
	}
	return okJSON(views)
}

func cmdSetView(ctx context.Context, s *Session, args []string) (Reply, error) {
	rect, err := models.ParseViewRect(args[0], args[1], args[2], args[3])
	if err != nil {
		return Reply{}, err
	}
	if err := s.model.SetView(ctx, s.tracker, rect); err != nil {
		return Reply{}, err
	}
	return ok("view set")
}

func cmdClearView(ctx context.Context, s *Session, _ []string) (Reply, error) {
	if err := s.model.ClearView(ctx, s.tracker); err != nil {
		return Reply{}, err
	}
	return ok("view cleared")
}

func cmdStatList(ctx context.Context, s *Session, _ []string) (Reply, error) {
	list, err := s.model.StatList(ctx, s.tracker)
	if err != nil {
		return Reply{}, err
	}
	return okJSON(list)
}

func cmdTracker(ctx context.Context, s *Session, _ []string) (Reply, error) {
	return okJSON(s.model.DescribeTracker(ctx, s.tracker))
}

func cmdWaitEvents(_ context.Context, s *Session, _ []string) (Reply, error) {
	if s.WaitEvents(s.waitTimeout) {
		return ok("event available")
	}
	return ok("no pending events")
}

func cmdSave(ctx context.Context, s *Session, _ []string) (Reply, error) {
	if err := s.model.Save(ctx); err != nil {
		return Reply{}, err
	}
	return ok("saved")
}

func okJSON(v any) (Reply, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return Reply{}, dErrors.Wrap(err, dErrors.CodeInternal, "encode response")
	}
	return ok("%s", payload)
}

// parseAssignments turns field=value tokens into an update map.
func parseAssignments(usage string, tokens []string) (map[string]string, error) {
	updates := make(map[string]string, len(tokens))
	for _, tok := range tokens {
		field, value, found := strings.Cut(tok, "=")
		if !found || field == "" {
			return nil, dErrors.New(dErrors.CodeValidation, "Usage: "+usage)
		}
		updates[field] = value
	}
	return updates, nil
}
