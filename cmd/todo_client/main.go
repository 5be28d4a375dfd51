package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strconv"
	"time"

	domain_todo "github.com/hijjiri/todo-api/internal/domain/todo"
	grpcadapter "github.com/hijjiri/todo-api/internal/interface/grpc"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func main() {
	addr := flag.String("addr", "localhost:50051", "gRPC server address")
	mode := flag.String("mode", "list", "mode: create | list | stream | toggle | delete")
	title := flag.String("title", "", "title for create")
	id := flag.Int64("id", 0, "id for toggle / delete")
	timeout := flag.Duration("timeout", 3*time.Second, "request timeout")
	flag.Parse()

	conn, err := grpc.NewClient(
		*addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	client := grpcadapter.NewTodoClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch *mode {
	case "create":
		// 空タイトルもサーバは受け付けるので、ここでは弾かない
		res, err := client.Create(ctx, *title)
		if err != nil {
			log.Fatalf("CreateTodo failed: %v", err)
		}
		fmt.Printf("created: %s\n", format(res))

	case "list", "stream":
		list := client.List
		if *mode == "stream" {
			list = client.ListStream
		}
		res, err := list(ctx)
		if err != nil {
			log.Fatalf("ListTodos failed: %v", err)
		}
		if len(res) == 0 {
			fmt.Println("no todos")
			return
		}
		fmt.Println("todos:")
		for _, t := range res {
			fmt.Printf("- %s\n", format(t))
		}

	case "toggle":
		if *id == 0 {
			log.Fatal("id is required for toggle")
		}
		res, err := client.Toggle(ctx, *id)
		if err != nil {
			log.Fatalf("ToggleTodo failed: %v", err)
		}
		fmt.Printf("toggled: %s\n", format(res))

	case "delete":
		// -id に加えて、残りの引数も id として消す
		ids, err := deleteIDs(*id, flag.Args())
		if err != nil {
			log.Fatal(err)
		}
		for _, v := range ids {
			msg, err := client.Delete(ctx, v)
			if err != nil {
				log.Fatalf("DeleteTodo(%d) failed: %v", v, err)
			}
			fmt.Printf("delete %d: %s\n", v, msg)
		}

	default:
		log.Fatalf("unknown mode: %s", *mode)
	}
}

func format(t *domain_todo.Todo) string {
	return fmt.Sprintf("id=%d title=%q done=%v", t.ID, t.Title, t.Completed)
}

func deleteIDs(id int64, args []string) ([]int64, error) {
	var ids []int64
	if id != 0 {
		ids = append(ids, id)
	}
	for _, a := range args {
		v, err := strconv.ParseInt(a, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q: %w", a, err)
		}
		ids = append(ids, v)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("id is required for delete")
	}
	return ids, nil
}
