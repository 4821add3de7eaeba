package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dmitrijs2005/foodcrm/internal/client/store"
	"github.com/dmitrijs2005/foodcrm/internal/client/stores"
	"github.com/dmitrijs2005/foodcrm/internal/common"
	"github.com/dmitrijs2005/foodcrm/internal/crm"
)

// getSimpleText and getPassword are test seams.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
)

type command struct {
	usage string
	help  string
	// auth commands need a session when the backend is remote.
	auth bool
	// minArgs is checked before run is called.
	minArgs int
	run     func(a *App, ctx context.Context, args []string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"register":   {usage: "register", help: "create an account", run: (*App).register},
		"login":      {usage: "login", help: "sign in", run: (*App).login},
		"logout":     {usage: "logout", help: "sign out and clear local state", auth: true, run: (*App).logout},
		"use":        {usage: "use <kind>", help: "switch entity kind (" + strings.Join(crm.Tables(), ", ") + ")", minArgs: 1, run: (*App).use},
		"list":       {usage: "list", help: "show the current page", auth: true, run: (*App).list},
		"refresh":    {usage: "refresh", help: "reload the current page from the server", auth: true, run: (*App).refresh},
		"next":       {usage: "next", help: "next page", auth: true, run: (*App).next},
		"prev":       {usage: "prev", help: "previous page", auth: true, run: (*App).prev},
		"page":       {usage: "page <n>", help: "jump to page n", auth: true, minArgs: 1, run: (*App).page},
		"more":       {usage: "more", help: "append the next page", auth: true, run: (*App).more},
		"search":     {usage: "search [text]", help: "server-side search (no text clears)", auth: true, run: (*App).search},
		"filter":     {usage: "filter <field> <v1,v2>", help: "filter by field values", auth: true, minArgs: 2, run: (*App).filter},
		"unfilter":   {usage: "unfilter <field>", help: "drop a filter", auth: true, minArgs: 1, run: (*App).unfilter},
		"sort":       {usage: "sort <field> [asc|desc]", help: "change the sort order", auth: true, minArgs: 1, run: (*App).sort},
		"local":      {usage: "local [text]", help: "search loaded entities without the server", auth: true, run: (*App).local},
		"show":       {usage: "show <id>", help: "show one entity", auth: true, minArgs: 1, run: (*App).show},
		"create":     {usage: "create field=value ...", help: "create an entity", auth: true, minArgs: 1, run: (*App).create},
		"update":     {usage: "update <id> field=value ...", help: "change fields of an entity", auth: true, minArgs: 2, run: (*App).update},
		"delete":     {usage: "delete <id>", help: "delete an entity", auth: true, minArgs: 1, run: (*App).delete},
		"select":     {usage: "select <id>", help: "add a loaded entity to the selection", auth: true, minArgs: 1, run: (*App).selectID},
		"toggle":     {usage: "toggle <id>", help: "flip selection of an entity", auth: true, minArgs: 1, run: (*App).toggle},
		"selectall":  {usage: "selectall", help: "select every entity on the page", auth: true, run: (*App).selectAll},
		"unselect":   {usage: "unselect", help: "clear the selection", auth: true, run: (*App).unselect},
		"selected":   {usage: "selected", help: "list selected ids", auth: true, run: (*App).selected},
		"bulkdelete": {usage: "bulkdelete", help: "delete every selected entity", auth: true, run: (*App).bulkDelete},
		"bulkupdate": {usage: "bulkupdate field=value ...", help: "change fields of every selected entity", auth: true, minArgs: 1, run: (*App).bulkUpdate},
		"attach":     {usage: "attach <interaction-id> <file>", help: "upload a file to an interaction", auth: true, minArgs: 2, run: (*App).attach},
		"link":       {usage: "link <interaction-id>", help: "download link of an interaction's attachment", auth: true, minArgs: 1, run: (*App).link},
		"stats":      {usage: "stats", help: "cache and request statistics", run: (*App).stats},
	}
}

func commandNames() []string {
	names := make([]string, 0, len(commands))
	for n := range commands {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

func (a *App) dispatch(ctx context.Context, name string, args []string) error {
	c, ok := commands[name]
	if !ok {
		return errUnknownCommand
	}
	if c.auth && !a.isLoggedIn() {
		return errNotLoggedIn
	}
	if len(args) < c.minArgs {
		return fmt.Errorf("usage: %s", c.usage)
	}
	return c.run(a, ctx, args)
}

// ---- session ----

func (a *App) register(ctx context.Context, _ []string) error {
	username, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.auth.Register(ctx, username, string(password)); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Registered. Type 'login' to sign in.")
	return nil
}

func (a *App) login(ctx context.Context, _ []string) error {
	username, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.auth.Login(ctx, username, string(password)); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Logged in as %s\n", username)
	return nil
}

func (a *App) logout(ctx context.Context, _ []string) error {
	if err := a.auth.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

// ---- browsing ----

func (a *App) use(_ context.Context, args []string) error {
	k, err := a.stores.Kind(args[0])
	if err != nil {
		return err
	}
	a.current = k
	a.scrolled = nil
	fmt.Fprintf(a.out, "Using %s\n", k.Name())
	return nil
}

func (a *App) list(ctx context.Context, _ []string) error {
	return a.printListing(a.current.Load(ctx))
}

func (a *App) refresh(ctx context.Context, _ []string) error {
	return a.printListing(a.current.Refresh(ctx))
}

func (a *App) next(ctx context.Context, _ []string) error {
	return a.printListing(a.current.NextPage(ctx))
}

func (a *App) prev(ctx context.Context, _ []string) error {
	return a.printListing(a.current.PrevPage(ctx))
}

func (a *App) page(ctx context.Context, args []string) error {
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("page must be a number: %w", common.ErrValidation)
	}
	return a.printListing(a.current.GoToPage(ctx, n))
}

// more loads the next page and prints it below everything listed so far.
func (a *App) more(ctx context.Context, _ []string) error {
	shown := a.scrolled
	l, err := a.current.LoadMore(ctx)
	if err != nil {
		return err
	}
	for _, it := range l.Items {
		id := it.(store.Entity).GetID()
		if !slices.ContainsFunc(shown, func(s any) bool { return s.(store.Entity).GetID() == id }) {
			shown = append(shown, it)
		}
	}
	a.scrolled = shown
	a.printItems(shown)
	fmt.Fprintf(a.out, "through page %d, %d of %d\n", l.Info.Page, len(shown), l.Info.Count)
	return nil
}

func (a *App) search(ctx context.Context, args []string) error {
	a.current.SetSearch(strings.Join(args, " "))
	return a.list(ctx, nil)
}

func (a *App) filter(ctx context.Context, args []string) error {
	if err := a.checkColumn(args[0]); err != nil {
		return err
	}
	a.current.SetFilter(args[0], strings.Split(args[1], ",")...)
	return a.list(ctx, nil)
}

func (a *App) unfilter(ctx context.Context, args []string) error {
	a.current.ClearFilter(args[0])
	return a.list(ctx, nil)
}

func (a *App) sort(ctx context.Context, args []string) error {
	if err := a.checkColumn(args[0]); err != nil {
		return err
	}
	desc := false
	if len(args) > 1 {
		switch strings.ToLower(args[1]) {
		case "asc":
		case "desc":
			desc = true
		default:
			return fmt.Errorf("order must be asc or desc: %w", common.ErrValidation)
		}
	}
	a.current.SetSort(args[0], desc)
	return a.list(ctx, nil)
}

func (a *App) local(_ context.Context, args []string) error {
	items := a.current.Local(strings.Join(args, " "))
	a.printItems(items)
	fmt.Fprintf(a.out, "%d loaded match(es)\n", len(items))
	return nil
}

func (a *App) checkColumn(name string) error {
	if _, ok := a.current.Schema().Column(name); !ok {
		return fmt.Errorf("%w: %s: %s", common.ErrUnknownField, a.current.Name(), name)
	}
	return nil
}

// ---- editing ----

func (a *App) show(ctx context.Context, args []string) error {
	e, err := a.current.Show(ctx, args[0])
	if err != nil {
		return err
	}
	if ent, ok := e.(store.Entity); ok && ent.IsDeleted() {
		fmt.Fprintln(a.out, "(deleted)")
	}
	return a.printJSON(e)
}

func (a *App) create(ctx context.Context, args []string) error {
	patch, err := ParseAssignments(a.current.Schema(), args)
	if err != nil {
		return err
	}
	e, err := a.current.Create(ctx, patch)
	a.printWarnings(store.OpCreate)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Created %s\n", e.(store.Entity).GetID())
	return nil
}

func (a *App) update(ctx context.Context, args []string) error {
	patch, err := ParseAssignments(a.current.Schema(), args[1:])
	if err != nil {
		return err
	}
	_, err = a.current.Update(ctx, args[0], patch)
	a.printWarnings(store.OpUpdate)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Updated %s\n", args[0])
	return nil
}

func (a *App) delete(ctx context.Context, args []string) error {
	if err := a.current.Delete(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted %s\n", args[0])
	return nil
}

// ---- selection and bulk ----

func (a *App) selectID(_ context.Context, args []string) error {
	if !a.current.Select(args[0]) {
		return fmt.Errorf("%s is not loaded: %w", args[0], common.ErrorNotFound)
	}
	fmt.Fprintf(a.out, "%d selected\n", len(a.current.Selected()))
	return nil
}

func (a *App) toggle(_ context.Context, args []string) error {
	if a.current.Toggle(args[0]) {
		fmt.Fprintf(a.out, "%s selected\n", args[0])
		return nil
	}
	fmt.Fprintf(a.out, "%s not selected\n", args[0])
	return nil
}

func (a *App) selectAll(_ context.Context, _ []string) error {
	n := a.current.SelectAllVisible()
	fmt.Fprintf(a.out, "%d selected\n", n)
	return nil
}

func (a *App) unselect(_ context.Context, _ []string) error {
	a.current.ClearSelection()
	fmt.Fprintln(a.out, "Selection cleared")
	return nil
}

func (a *App) selected(_ context.Context, _ []string) error {
	ids := a.current.Selected()
	for _, id := range ids {
		fmt.Fprintln(a.out, id)
	}
	fmt.Fprintf(a.out, "%d selected\n", len(ids))
	return nil
}

func (a *App) bulkDelete(ctx context.Context, _ []string) error {
	if len(a.current.Selected()) == 0 {
		return fmt.Errorf("nothing selected: %w", common.ErrValidation)
	}
	out, err := a.current.DeleteSelected(ctx)
	if err != nil {
		return err
	}
	a.printOutcome("deleted", out)
	return nil
}

func (a *App) bulkUpdate(ctx context.Context, args []string) error {
	if len(a.current.Selected()) == 0 {
		return fmt.Errorf("nothing selected: %w", common.ErrValidation)
	}
	patch, err := ParseAssignments(a.current.Schema(), args)
	if err != nil {
		return err
	}
	out, err := a.current.UpdateSelected(ctx, patch)
	a.printWarnings(store.OpUpdateMany)
	if err != nil {
		return err
	}
	a.printOutcome("updated", out)
	return nil
}

// ---- attachments ----

func (a *App) attach(ctx context.Context, args []string) error {
	it, err := a.attachments.Attach(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Attached %s to %s\n", it.AttachmentKey, it.ID)
	return nil
}

func (a *App) link(ctx context.Context, args []string) error {
	it, err := a.stores.Interactions.Get(args[0])
	if err != nil {
		it, err = a.stores.Interactions.FetchByID(ctx, args[0])
		if err != nil {
			return err
		}
	}
	u, err := a.attachments.Link(ctx, it.AttachmentKey)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, u)
	return nil
}

// ---- diagnostics ----

func (a *App) stats(_ context.Context, _ []string) error {
	snap := a.stores.Snapshot()
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STORE\tCACHED\tPENDING\tQUERIES\tSELECTED")
	for _, t := range crm.Tables() {
		s := snap[t]
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\n", t, s.Cached, s.Pending, s.Queries, s.Selected)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	counters, err := a.metrics.Counters("foodcrm_store")
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(counters))
	for k := range counters {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(a.out, "%s %g\n", k, counters[k])
	}
	return nil
}

// ---- output ----

func (a *App) printListing(l stores.Listing, err error) error {
	if err != nil {
		return err
	}
	a.scrolled = l.Items
	a.printItems(l.Items)
	src := "server"
	if l.Cached {
		src = "cache"
	}
	fmt.Fprintf(a.out, "page %d, %d of %d (%s)\n", l.Info.Page, len(l.Items), l.Info.Count, src)
	return nil
}

func (a *App) printItems(items []any) {
	selected := a.current.Selected()
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, it := range items {
		e := it.(store.Entity)
		mark := " "
		if slices.Contains(selected, e.GetID()) {
			mark = "*"
		}
		title, detail := describe(it)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", mark, e.GetID(), title, detail)
	}
	_ = tw.Flush()
}

func (a *App) printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, string(b))
	return nil
}

func (a *App) printWarnings(op store.Op) {
	for _, w := range a.current.Warnings(op) {
		fmt.Fprintf(a.out, "warning: %s\n", w)
	}
}

func (a *App) printOutcome(verb string, out store.BulkOutcome) {
	fmt.Fprintf(a.out, "%s: %d %s, %d failed\n", out.Status, len(out.Succeeded), verb, len(out.Failed))
	for _, f := range out.Failed {
		fmt.Fprintf(a.out, "  %s: %s\n", f.ID, f.Error)
	}
}

func describe(e any) (string, string) {
	switch v := e.(type) {
	case crm.Organization:
		return v.Name, v.City
	case crm.Contact:
		return strings.TrimSpace(v.FirstName + " " + v.LastName), v.Email
	case crm.Product:
		return v.Name, v.SKU
	case crm.Opportunity:
		return v.Name, v.Stage
	case crm.Interaction:
		return v.Subject, v.Type
	default:
		return "", ""
	}
}
