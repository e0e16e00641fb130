package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"taskboard/client"
	"taskboard/config"
	"taskboard/domain"
)

const usage = `usage: taskctl [flags] <command> [args]

commands:
  list [-search s] [-category c] [-status s]
  stats
  add [-priority p] [-category c] [-status s] [-due yyyy-mm-dd] <title> <description>
  update [-title t] [-description d] [-priority p] [-category c] [-due yyyy-mm-dd] <id>
  status <id> <status>
  move <id> (<over-id> | -column <status>)
  rm <id>
  reorder <status> <id>...
`

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	var (
		mode    = flag.String("mode", cfg.ClientMode, "repository mode: remote or local")
		baseURL = flag.String("url", cfg.ClientBaseURL, "task API base URL for remote mode")
		file    = flag.String("file", cfg.ClientLocalPath, "task document for local mode")
		debug   = flag.Bool("debug", cfg.Debug, "enable debug logging")
	)
	flag.Usage = func() { fmt.Fprint(flag.CommandLine.Output(), usage); flag.PrintDefaults() }
	flag.Parse()

	if *debug {
		log.SetLevel(log.DebugLevel)
	}
	cfg.ClientMode, cfg.ClientBaseURL, cfg.ClientLocalPath = *mode, *baseURL, *file

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	repo, err := client.Open(cfg)
	if err != nil {
		log.Fatalf("open repository: %v", err)
	}
	m := client.NewManager(repo, client.LogNotifier{Logger: log.StandardLogger()}, log.StandardLogger())

	ctx := context.Background()
	if err := m.Refresh(ctx); err != nil {
		os.Exit(1)
	}
	if err := run(ctx, m, args[0], args[1:]); err != nil {
		var ue usageError
		if errors.As(err, &ue) {
			fmt.Fprintln(os.Stderr, err)
			flag.Usage()
			os.Exit(2)
		}
		os.Exit(1)
	}
}

type usageError string

func (e usageError) Error() string { return string(e) }

func run(ctx context.Context, m *client.Manager, cmd string, args []string) error {
	switch cmd {
	case "list":
		fs := flag.NewFlagSet("list", flag.ContinueOnError)
		search := fs.String("search", "", "match title or description")
		category := fs.String("category", string(domain.CategoryAll), "category filter")
		status := fs.String("status", "", "only this column")
		if err := fs.Parse(args); err != nil {
			return usageError(err.Error())
		}
		tasks := m.Filter(domain.Query{Search: *search, Category: domain.Category(*category), Status: domain.Status(*status)})
		domain.SortByOrder(tasks)
		return printJSON(tasks)

	case "stats":
		return printJSON(m.Stats())

	case "add":
		fs := flag.NewFlagSet("add", flag.ContinueOnError)
		priority := fs.String("priority", "", "low, medium or high")
		category := fs.String("category", "", "work, personal or urgent")
		status := fs.String("status", string(domain.StatusTodo), "column")
		due := fs.String("due", "", "due date")
		if err := fs.Parse(args); err != nil {
			return usageError(err.Error())
		}
		if fs.NArg() != 2 {
			return usageError("add needs a title and a description")
		}
		st := domain.Status(*status)
		d := domain.Draft{
			Title:       fs.Arg(0),
			Description: fs.Arg(1),
			Priority:    domain.Priority(*priority),
			Category:    domain.Category(*category),
			Status:      st,
			DueDate:     *due,
			Order:       len(m.Column(st)),
		}
		t, err := m.AddTask(ctx, d)
		if err != nil {
			return err
		}
		return printJSON(t)

	case "update":
		fs := flag.NewFlagSet("update", flag.ContinueOnError)
		title := fs.String("title", "", "new title")
		description := fs.String("description", "", "new description")
		priority := fs.String("priority", "", "new priority")
		category := fs.String("category", "", "new category")
		due := fs.String("due", "", "new due date")
		if err := fs.Parse(args); err != nil {
			return usageError(err.Error())
		}
		if fs.NArg() != 1 {
			return usageError("update needs a task id")
		}
		var p domain.Patch
		fs.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "title":
				p.Title = title
			case "description":
				p.Description = description
			case "priority":
				v := domain.Priority(*priority)
				p.Priority = &v
			case "category":
				v := domain.Category(*category)
				p.Category = &v
			case "due":
				p.DueDate = due
			}
		})
		if p.Empty() {
			return usageError("update needs at least one field")
		}
		t, err := m.UpdateTask(ctx, fs.Arg(0), p)
		if err != nil {
			return err
		}
		return printJSON(t)

	case "status":
		if len(args) != 2 {
			return usageError("status needs a task id and a status")
		}
		t, err := m.UpdateStatus(ctx, args[0], domain.Status(args[1]))
		if err != nil {
			return err
		}
		return printJSON(t)

	case "move":
		fs := flag.NewFlagSet("move", flag.ContinueOnError)
		column := fs.String("column", "", "drop on the column area instead of a task")
		if err := fs.Parse(args); err != nil {
			return usageError(err.Error())
		}
		if fs.NArg() < 1 || (fs.NArg() < 2 && *column == "") {
			return usageError("move needs a task id and a target")
		}
		ev := domain.DragEnd{ActiveID: fs.Arg(0), OverID: fs.Arg(1), OverColumn: domain.Status(*column)}
		if err := m.MoveTask(ctx, ev); err != nil {
			return err
		}
		return printJSON(m.Column(statusOf(m, ev.ActiveID)))

	case "rm":
		if len(args) != 1 {
			return usageError("rm needs a task id")
		}
		return m.RemoveTask(ctx, args[0])

	case "reorder":
		if len(args) < 1 {
			return usageError("reorder needs a status")
		}
		status := domain.Status(args[0])
		sub := make([]domain.Task, 0, len(args)-1)
		for _, id := range args[1:] {
			sub = append(sub, domain.Task{ID: id})
		}
		tasks, err := m.ReorderTasks(ctx, status, sub)
		if err != nil {
			return err
		}
		return printJSON(tasks)

	default:
		return usageError("unknown command " + strconv.Quote(cmd))
	}
}

func statusOf(m *client.Manager, id string) domain.Status {
	for _, t := range m.Tasks() {
		if t.ID == id {
			return t.Status
		}
	}
	return ""
}

func printJSON(v any) error {
	data, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
