package gotable

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"net/url"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/google/safehtml"
	"github.com/google/safehtml/uncheckedconversions"
	"github.com/samber/lo"
	"golang.org/x/net/html"
)

// Request parameters understood by the controller.
const (
	ParamProfile  = "profile"
	ParamAction   = "action"
	ParamFunction = "function"
	ParamName     = "name"
	ParamValue    = "value"
	ParamSearch   = "search"
	ParamSortBy   = "sort_by"
	ParamCSV      = "csv"
	ParamPage     = "page"

	FormFilter          = "form_filter"
	FormFilterReset     = "form_filter_reset"
	FormSaveColumnSetup = "_save_column_setup"
)

// Ajax actions.
const (
	ActionSaveState     = "save_state"
	ActionSaveStateAs   = "save_state_as"
	ActionLoadJSON      = "load_json"
	ActionRemoveProfile = "remove_profile"
	ActionLoadPage      = "load_page"
)

// Profile ids with a special meaning.
const (
	ProfileDefault = "default"
	ProfileCustom  = "custom"
)

// CustomProfileURL is where state changing submissions redirect to.
const CustomProfileURL = "?" + ParamProfile + "=" + ProfileCustom

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithRowsPerPage enables pagination. AllRows shows everything on one page.
func WithRowsPerPage(rowsPerPage int) ControllerOption {
	return func(c *Controller) {
		c.rowsPerPage = rowsPerPage
	}
}

// WithPaginator overrides the paginator of the table type.
func WithPaginator(factory PaginatorFactory) ControllerOption {
	return func(c *Controller) {
		c.paginatorFactory = factory
	}
}

func WithProfileStore(store ProfileStore) ControllerOption {
	return func(c *Controller) {
		c.store = store
	}
}

func WithRenderer(renderer HTMLRenderer) ControllerOption {
	return func(c *Controller) {
		c.renderer = renderer
	}
}

func WithRouter(router Router) ControllerOption {
	return func(c *Controller) {
		c.router = router
	}
}

func WithLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		c.log = logger
	}
}

// WithTemplateContext adds values to the template data of every render.
func WithTemplateContext(values map[string]any) ControllerOption {
	return func(c *Controller) {
		c.extra = values
	}
}

// Controller serves one request of a table instance: it restores the view
// state from the session or a profile, applies the request to it, persists
// it back to the session and renders the table.
type Controller struct {
	view *TableView
	src  DataSource
	req  Request
	log  *slog.Logger

	store            ProfileStore
	renderer         HTMLRenderer
	router           Router
	rowsPerPage      int
	paginatorFactory PaginatorFactory
	paginator        Paginator
	extra            map[string]any

	profile     *Profile
	visible     []string
	sortBy      string
	sortAsc     bool
	filter      map[string]any
	filterForm  FilterForm
	searchValue string
	prepared    bool
	data        *TemplateData
}

// NewController returns the controller of view over src for req.
func NewController(view *TableView, src DataSource, req Request, opts ...ControllerOption) *Controller {
	c := &Controller{
		view:    view,
		src:     src,
		req:     req,
		log:     slog.Default(),
		visible: view.DefaultVisible(),
		sortAsc: true,
		filter:  map[string]any{},
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.paginatorFactory == nil {
		c.paginatorFactory = lo.Ternary(view.meta.Paginator != nil, view.meta.Paginator, Eager(DefaultSegment))
	}
	c.log = c.log.With(slog.String("table", view.ID()))

	return c
}

// View returns the table instance.
func (c *Controller) View() *TableView {
	return c.view
}

// Source returns the data source in its current state.
func (c *Controller) Source() DataSource {
	return c.src
}

// Profile returns the restored profile, nil when the state did not come from
// one.
func (c *Controller) Profile() *Profile {
	return c.profile
}

// Paginator returns the paginator, nil until the page is prepared or when
// pagination is disabled.
func (c *Controller) Paginator() Paginator {
	return c.paginator
}

// FilterForm returns the filter form of the request, nil when the table has
// none.
func (c *Controller) FilterForm() FilterForm {
	return c.filterForm
}

// SearchValue returns the applied search term.
func (c *Controller) SearchValue() string {
	return c.searchValue
}

// ProcessRequest restores the view state, applies the request and saves the
// state to the session. A nil response means the caller should render the
// table.
func (c *Controller) ProcessRequest() (Response, error) {
	ctx := c.req.Context()

	if err := c.Restore(ctx, c.req.Query().Get(ParamProfile)); err != nil {
		return nil, err
	}

	resp, err := c.dispatch(ctx)

	if saveErr := c.Save(ctx); saveErr != nil {
		if err == nil {
			err = saveErr
		}
		c.log.Error("save session state", slog.Any("err", saveErr))
	}

	if err != nil {
		return nil, err
	}

	return resp, nil
}

func (c *Controller) dispatch(ctx context.Context) (Response, error) {
	query := c.req.Query()

	if c.req.IsAjax() {
		action := query.Get(ParamAction)
		c.log.Debug("ajax request", slog.String("action", action))

		switch action {
		case ActionSaveState:
			return c.saveStateResponse(ctx, nil)
		case ActionSaveStateAs:
			name := query.Get(ParamName)
			return c.saveStateResponse(ctx, &name)
		case ActionLoadJSON:
			name := query.Get(ParamFunction)
			if fn, ok := c.view.meta.AjaxFuncs[name]; ok && fn != nil {
				return fn(c.req)
			}
			c.log.Warn("unknown ajax function", slog.String("function", name))
		case ActionRemoveProfile:
			res, err := c.RemoveProfile(ctx, query.Get(ParamValue))
			if err != nil {
				return nil, err
			}

			return JSON(res), nil
		case ActionLoadPage:
			if query.Has(ParamSearch) {
				c.searchValue = query.Get(ParamSearch)
			}
			c.processFilterForm()

			envelope, err := c.LoadPage(ctx)
			if err != nil {
				return nil, err
			}

			return JSON(envelope), nil
		}
	}

	if query.Has(ParamSearch) {
		c.searchValue = query.Get(ParamSearch)
	}

	resp := c.processFilterForm()

	if query.Has(ParamSortBy) {
		if !c.SetSort(query.Get(ParamSortBy)) {
			c.log.Debug("sort ignored", slog.String("sort_by", query.Get(ParamSortBy)))
		}
		resp = Redirect(CustomProfileURL)
	}

	if query.Has(ParamCSV) && c.view.meta.CSVAllow {
		csv, err := c.DownloadCSV(ctx)
		if err != nil {
			return nil, err
		}

		return csv, nil
	}

	if c.req.Method() == http.MethodPost && c.req.Form().Has(FormSaveColumnSetup) {
		c.applyColumnSetup(c.req.Form())
		resp = Redirect(CustomProfileURL)
	}

	return resp, nil
}

// processFilterForm builds the filter form of the request and applies a
// valid submission. A successful submission returns a redirect; an invalid
// one keeps the form for re-rendering with its errors.
func (c *Controller) processFilterForm() Response {
	factory := c.view.meta.FilterForm
	if factory == nil {
		return nil
	}

	form := c.req.Form()
	isPost := c.req.Method() == http.MethodPost

	switch {
	case isPost && form.Has(FormFilter):
		c.filterForm = factory(c.req, c.src.Clone(), nil)
		if cleaned, ok := c.filterForm.Validate(form); ok {
			c.filter = lo.Ternary(cleaned != nil, cleaned, map[string]any{})
			return Redirect(CustomProfileURL)
		}
		c.log.Debug("filter form is invalid")
	case isPost && form.Has(FormFilterReset):
		c.filter = map[string]any{}
		c.filterForm = factory(c.req, c.src.Clone(), map[string]any{})
	default:
		c.filterForm = factory(c.req, c.src.Clone(), c.filter)
	}

	return nil
}

// ColumnSetupPrefix returns the prefix of the column visibility checkboxes.
func (c *Controller) ColumnSetupPrefix() string {
	return fmt.Sprintf("setup_%s_column_", c.view.ID())
}

// applyColumnSetup makes the checked columns the visible ones. Only fields
// carrying the prefix of this table are considered.
func (c *Controller) applyColumnSetup(form url.Values) {
	prefix := c.ColumnSetupPrefix()

	checked := map[string]struct{}{}
	for key, values := range form {
		if !strings.HasPrefix(key, prefix) {
			continue
		}

		for _, value := range values {
			checked[value] = struct{}{}
		}
	}

	c.visible = []string{}
	for _, key := range c.view.keys {
		if _, ok := checked[key]; ok {
			c.ShowColumn(key)
		}
	}
}

// Restore loads the view state. An explicit profile id wins, then the last
// profile used in the session, then the session state. The literal
// "default" selects the default profile of the user, creating it when
// needed.
func (c *Controller) Restore(ctx context.Context, profileID string) error {
	session := c.req.Session()
	stateKey := sessionStateKey(c.view.ID())
	lastKey := sessionLastProfileKey(c.view.ID())

	last, hasLast, err := session.Get(ctx, lastKey)
	if err != nil {
		return fmt.Errorf("read last profile: %w", err)
	}

	switch {
	case profileID == "" && hasLast:
		profileID = last
	case profileID != "":
		if err = session.Set(ctx, lastKey, profileID); err != nil {
			return fmt.Errorf("remember profile: %w", err)
		}
	}

	stored, hasState, err := session.Get(ctx, stateKey)
	if err != nil {
		return fmt.Errorf("read session state: %w", err)
	}

	if c.store != nil {
		if err = c.restoreProfile(ctx, profileID, hasState); err != nil {
			return err
		}
	}

	var state *State
	if hasState {
		state = decodeSessionState(stored)
	}

	if c.profile != nil {
		state = c.profile.State()
	}

	c.log.Debug("restore state",
		slog.String("profile", profileID),
		slog.Bool("session", hasState),
		slog.Bool("found", state != nil),
	)

	if state != nil {
		c.ApplyState(state)
	}

	return nil
}

func (c *Controller) restoreProfile(ctx context.Context, profileID string, hasState bool) error {
	q, ok := c.ownerQuery()
	if !ok {
		return nil
	}

	var err error
	switch {
	case profileID == ProfileDefault:
		q.IsDefault = lo.ToPtr(true)
		c.profile, _, err = c.store.GetOrCreate(ctx, q, "")
	case profileID == "" && !hasState:
		q.IsDefault = lo.ToPtr(true)
		c.profile, err = c.store.Get(ctx, q)
	case isDigits(profileID):
		id, _ := strconv.ParseUint(profileID, 10, 0)
		q.ID = uint(id)
		q.IsDefault = lo.ToPtr(false)
		c.profile, err = c.store.Get(ctx, q)
	}

	if err != nil {
		return fmt.Errorf("restore profile %q: %w", profileID, err)
	}

	return nil
}

// ownerQuery returns the profile query of the table and the request user.
// Anonymous users own no profiles of per-user tables.
func (c *Controller) ownerQuery() (ProfileQuery, bool) {
	q := ProfileQuery{TableViewName: c.view.ID()}

	if c.view.meta.GlobalProfile {
		q.Owner = OwnerGlobal
		return q, true
	}

	user := c.req.User()
	if user == nil || user.IsAnonymous {
		return q, false
	}

	q.Owner = OwnerUser
	q.UserID = user.ID

	return q, true
}

// ApplyState replaces the view state. Missing visible columns select the
// default visible ones, a sort on an unknown column is ignored.
func (c *Controller) ApplyState(state *State) {
	c.visible = lo.Ternary(state.Visible != nil, slices.Clone(state.Visible), c.view.DefaultVisible())
	c.filter = lo.Ternary(state.Filter != nil, state.Filter, map[string]any{})

	c.sortBy, c.sortAsc = "", true
	if state.SortBy != "" {
		c.SetSort(state.SortBy)
	}
}

// State returns the view state.
func (c *Controller) State() *State {
	return &State{
		Visible: slices.Clone(c.visible),
		SortBy:  c.Sort(),
		Filter:  c.filter,
	}
}

// Save stores the view state in the session.
func (c *Controller) Save(ctx context.Context) error {
	value, err := encodeSessionState(c.State())
	if err != nil {
		return err
	}

	return c.req.Session().Set(ctx, sessionStateKey(c.view.ID()), value)
}

// SaveState stores the view state as the default profile, or as the profile
// labelled name.
func (c *Controller) SaveState(ctx context.Context, name *string) (*SaveResult, error) {
	if c.store == nil {
		return nil, ErrProfileStoreMissing
	}

	q, ok := c.ownerQuery()
	if !ok {
		return nil, ErrAnonymousUser
	}

	dump, err := DumpState(c.State())
	if err != nil {
		return nil, err
	}

	if name == nil {
		q.IsDefault = lo.ToPtr(true)
	} else {
		q.IsDefault = lo.ToPtr(false)
		q.Label = name
	}

	p, created, err := c.store.GetOrCreate(ctx, q, dump)
	if err != nil {
		return nil, fmt.Errorf("save state: %w", err)
	}

	if !created {
		p.Dump = dump
		if err = c.store.Save(ctx, p); err != nil {
			return nil, fmt.Errorf("save state: %w", err)
		}
	}

	return &SaveResult{Status: "OK", ID: p.ID, Created: created}, nil
}

func (c *Controller) saveStateResponse(ctx context.Context, name *string) (Response, error) {
	res, err := c.SaveState(ctx, name)
	if err != nil {
		return nil, err
	}

	return JSON(res), nil
}

// RemoveProfile deletes a named profile of the user. Default profiles are
// never removed; unknown ids are no-ops.
func (c *Controller) RemoveProfile(ctx context.Context, profileID string) (*StatusResult, error) {
	if c.store == nil {
		return nil, ErrProfileStoreMissing
	}

	q, ok := c.ownerQuery()
	id, err := strconv.ParseUint(profileID, 10, 0)
	if !ok || err != nil || id == 0 {
		return &StatusResult{Status: "OK"}, nil
	}

	q.ID = uint(id)
	q.IsDefault = lo.ToPtr(false)
	if _, err = c.store.Delete(ctx, q); err != nil {
		return nil, fmt.Errorf("remove profile %d: %w", id, err)
	}

	return &StatusResult{Status: "OK"}, nil
}

// SavedStates returns the named profiles of the user ordered by label.
func (c *Controller) SavedStates(ctx context.Context) ([]Profile, error) {
	if c.store == nil {
		return nil, nil
	}

	q, ok := c.ownerQuery()
	if !ok {
		return nil, nil
	}
	q.IsDefault = lo.ToPtr(false)

	return c.store.List(ctx, q)
}

// SetSort sorts by the sort specification ("key" or "-key"). Specifications
// naming no sortable column are ignored and false is returned.
func (c *Controller) SetSort(spec string) bool {
	key, asc := ParseSortSpec(spec)
	if !c.view.IsSortable(key) {
		return false
	}

	c.sortBy, c.sortAsc = key, asc

	col, _ := c.view.Column(key)
	if col.OrderBy != nil {
		c.src = col.OrderBy(col, c.src, asc)
	} else {
		c.src = c.src.SetOrder(col.Ref(), asc)
	}

	return true
}

// Sort returns the current sort specification, empty when unsorted.
func (c *Controller) Sort() string {
	return FormatSortSpec(c.sortBy, c.sortAsc)
}

// ShowColumn makes a declared column visible. It reports whether anything
// changed.
func (c *Controller) ShowColumn(key string) bool {
	if _, ok := c.view.Column(key); !ok || slices.Contains(c.visible, key) {
		return false
	}

	c.visible = append(c.visible, key)

	return true
}

// Visible returns the keys of the visible columns.
func (c *Controller) Visible() []string {
	return slices.Clone(c.visible)
}

// Columns returns the shown columns: permanent columns missing from the
// visible list in column order, then the visible list.
func (c *Controller) Columns() []*Column {
	ret := make([]*Column, 0, len(c.view.columns))
	for _, col := range c.view.columns {
		if c.view.IsPermanent(col.Key) && !slices.Contains(c.visible, col.Key) {
			ret = append(ret, col)
		}
	}

	for _, key := range c.visible {
		if col, ok := c.view.Column(key); ok {
			ret = append(ret, col)
		}
	}

	return ret
}

// Titles returns the headers of the shown columns.
func (c *Controller) Titles() []*CellTitle {
	return c.titles(c.Columns())
}

// AllTitles returns the headers of every column.
func (c *Controller) AllTitles() []*CellTitle {
	return c.titles(c.view.columns)
}

func (c *Controller) titles(columns []*Column) []*CellTitle {
	return lo.Map(columns, func(col *Column, _ int) *CellTitle {
		return &CellTitle{
			Key:       col.Key,
			Column:    col,
			sortable:  c.view.IsSortable(col.Key),
			sorted:    col.Key == c.sortBy,
			asc:       c.sortAsc,
			permanent: c.view.IsPermanent(col.Key),
			visible:   slices.Contains(c.visible, col.Key),
		}
	})
}

// IsFilterActive reports whether any filter value is set.
func (c *Controller) IsFilterActive() bool {
	return lo.SomeBy(lo.Values(c.filter), isSet)
}

func isSet(value any) bool {
	if value == nil {
		return false
	}

	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array, reflect.String:
		return v.Len() > 0
	default:
		return !v.IsZero()
	}
}

// prepare applies the filter and the search to the source and calculates
// the page. It runs once per controller.
func (c *Controller) prepare(ctx context.Context, paginate bool) error {
	if c.prepared {
		return nil
	}
	c.prepared = true

	c.src = c.view.ApplyFilter(c.filter, c.src)
	if c.searchValue != "" {
		c.src = c.view.ApplySearch(c.searchValue, c.src)
	}

	if err := c.src.Err(); err != nil {
		return fmt.Errorf("prepare source: %w", err)
	}

	if !paginate || c.rowsPerPage == 0 {
		return nil
	}

	c.paginator = c.paginatorFactory(c.src, c.rowsPerPage)
	if err := c.paginator.Calc(ctx, c.req.Query().Get(ParamPage)); err != nil {
		return fmt.Errorf("calculate page: %w", err)
	}

	return nil
}

// Rows returns the rows of the current page bound to the shown columns.
func (c *Controller) Rows(ctx context.Context) ([]*BoundRow, error) {
	if err := c.prepare(ctx, true); err != nil {
		return nil, err
	}

	var (
		items []any
		err   error
	)
	if c.paginator != nil {
		items, err = c.paginator.Items(ctx)
	} else {
		items, err = c.src.Clone().Rows(ctx)
	}

	if err != nil {
		return nil, fmt.Errorf("fetch rows: %w", err)
	}

	return c.bind(items), nil
}

func (c *Controller) bind(items []any) []*BoundRow {
	var (
		columns = c.Columns()
		base    = CellContext{Request: c.req, Router: c.router, Renderer: c.renderer}
	)

	return lo.Map(items, func(row any, i int) *BoundRow {
		return newBoundRow(c.view, columns, base, i+1, row)
	})
}

// TemplateData is what the table templates are executed with.
type TemplateData struct {
	Table      *TableView
	Meta       Meta
	Controller *Controller
	FilterForm FilterForm
	// FilterFormHTML holds the fields of an HTMLFilterForm.
	FilterFormHTML safehtml.HTML
	Titles         []*CellTitle
	AllTitles      []*CellTitle
	Rows           []*BoundRow
	Paginator      Paginator
	// StartURL prefixes the page links.
	StartURL string
	Query    url.Values
	Profiles []Profile
	Search   string
	Sort     string
	// Context holds the values of the table type hook.
	Context map[string]any
	// Extra holds the values passed with WithTemplateContext.
	Extra map[string]any
}

// TemplateData prepares the page and returns the template data.
func (c *Controller) TemplateData(ctx context.Context) (*TemplateData, error) {
	if c.data != nil {
		return c.data, nil
	}

	rows, err := c.Rows(ctx)
	if err != nil {
		return nil, err
	}

	profiles, err := c.SavedStates(ctx)
	if err != nil {
		return nil, err
	}

	data := &TemplateData{
		Table:      c.view,
		Meta:       c.view.meta,
		Controller: c,
		FilterForm: c.filterForm,
		Titles:     c.Titles(),
		AllTitles:  c.AllTitles(),
		Rows:       rows,
		Paginator:  c.paginator,
		StartURL:   "?",
		Query:      c.req.Query(),
		Profiles:   profiles,
		Search:     c.searchValue,
		Sort:       c.Sort(),
		Extra:      maps.Clone(c.extra),
	}

	if c.paginator != nil {
		data.StartURL = c.paginator.StartURL(data.Query)
	}

	if form, ok := c.filterForm.(HTMLFilterForm); ok {
		data.FilterFormHTML = form.HTML()
	}

	if c.view.meta.TemplateContext != nil {
		data.Context = c.view.meta.TemplateContext(c.req)
	}
	c.data = data

	return data, nil
}

// RenderHTML renders the whole table.
func (c *Controller) RenderHTML(ctx context.Context) (safehtml.HTML, error) {
	return c.render(ctx, c.view.meta.Template)
}

// Render writes the whole table to w.
func (c *Controller) Render(ctx context.Context, w io.Writer) error {
	out, err := c.RenderHTML(ctx)
	if err != nil {
		return err
	}

	if _, err = io.WriteString(w, out.String()); err != nil {
		return fmt.Errorf("write table: %w", err)
	}

	return nil
}

// LoadPage renders the partial refresh envelope: the row body, the pager
// and the page count.
func (c *Controller) LoadPage(ctx context.Context) (*PageEnvelope, error) {
	body, err := c.render(ctx, c.view.meta.BodyTemplate)
	if err != nil {
		return nil, err
	}

	pager, err := c.render(ctx, c.view.meta.PaginatorTemplate)
	if err != nil {
		return nil, err
	}

	envelope := &PageEnvelope{PageCount: 1, Body: body.String(), Paginator: pager.String()}
	if c.paginator != nil {
		envelope.PageCount = c.paginator.PageCount()
	}

	return envelope, nil
}

func (c *Controller) render(ctx context.Context, name string) (safehtml.HTML, error) {
	if c.renderer == nil {
		return safehtml.HTML{}, ErrRendererMissing
	}

	data, err := c.TemplateData(ctx)
	if err != nil {
		return safehtml.HTML{}, err
	}

	out, err := c.renderer.RenderHTML(name, data)
	if err != nil {
		c.log.Error("render template", slog.String("template", name), slog.Any("err", err))
		return safehtml.HTML{}, fmt.Errorf("render %s: %w", name, err)
	}

	return out, nil
}

// ColumnSetupHTML renders the column visibility checkboxes. Permanent
// columns are checked and disabled.
func (c *Controller) ColumnSetupHTML() safehtml.HTML {
	prefix := c.ColumnSetupPrefix()

	var sb strings.Builder
	for _, title := range c.AllTitles() {
		name := html.EscapeString(prefix + title.Key)
		sb.WriteString(`<label>`)
		fmt.Fprintf(&sb, `<input type="checkbox" name="%s" value="%s"`, name, html.EscapeString(title.Key))
		if title.IsVisible() || title.IsPermanent() {
			sb.WriteString(` checked`)
		}

		if title.IsPermanent() {
			sb.WriteString(` disabled`)
		}
		sb.WriteString(`> `)
		sb.WriteString(html.EscapeString(title.Text()))
		sb.WriteString(`</label>`)
	}

	return uncheckedconversions.HTMLFromStringKnownToSatisfyTypeContract(sb.String())
}

func isDigits(s string) bool {
	return s != "" && strings.Trim(s, "0123456789") == ""
}
