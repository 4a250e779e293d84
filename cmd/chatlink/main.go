package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gorilla/handlers"

	"github.com/teamforge/chatlink/internal/client"
	"github.com/teamforge/chatlink/internal/config"
	"github.com/teamforge/chatlink/internal/identity"
	"github.com/teamforge/chatlink/internal/protocol"
	"github.com/teamforge/chatlink/internal/rest"
	"github.com/teamforge/chatlink/internal/stats"
	"github.com/teamforge/chatlink/internal/store"
	"github.com/teamforge/chatlink/internal/types"
)

var (
	serverURL string
	token     string
	peerId    int
	chatId    int
	debugAddr string
)

func main() {
	flag.StringVar(&serverURL, "server", "http://localhost:8000", "backend base URL")
	flag.StringVar(&token, "token", "", "credential token")
	flag.IntVar(&peerId, "peer", 0, "user id to open a chat with")
	flag.IntVar(&chatId, "chat", 0, "chat id to join")
	flag.StringVar(&debugAddr, "debug-addr", "localhost:8600", "address for the debug stats endpoint")
	flag.Parse()

	logger := log.New(os.Stderr, "[chatlink] ", log.LstdFlags)

	cfg, err := config.NewConfig(serverURL, token)
	if err != nil {
		logger.Fatal("config:", err)
	}

	claims, err := identity.FromToken(cfg.Token)
	if err != nil {
		logger.Fatal("token:", err)
	}
	if claims.Expired() {
		logger.Fatal("token is expired, log in again")
	}

	mux := http.NewServeMux()
	statsUpdater := stats.NewStatsUpdater(mux)
	statsUpdater.Run()
	defer statsUpdater.Stop()

	go func() {
		h := handlers.LoggingHandler(os.Stderr, mux)
		if err := http.ListenAndServe(debugAddr, h); err != nil {
			logger.Println("debug server:", err)
		}
	}()

	restClient := rest.NewClient(cfg.ApiBaseURL, cfg.Token, logger)

	convs := store.NewConversationStore(claims.UserId, logger)
	notifs := store.NewNotificationStore(logger)

	chatDispatcher := client.NewChatDispatcher(convs, logger, statsUpdater, func(msg string) {
		fmt.Fprintf(os.Stderr, "server error: %s\n", msg)
	})
	chatConn := client.NewConn("Chat", cfg.ChatEndpoint, chatDispatcher, logger, statsUpdater)
	chatConn.SetStatusFunc(func(s client.Status, errMsg string) {
		if errMsg != "" {
			fmt.Fprintf(os.Stderr, "chat channel %s: %s\n", s, errMsg)
			return
		}
		fmt.Fprintf(os.Stderr, "chat channel %s\n", s)
	})

	notifDispatcher := client.NewNotificationDispatcher(notifs, logger, statsUpdater, nil)
	notifConn := client.NewConn("Notification", cfg.NotificationEndpoint, notifDispatcher, logger, statsUpdater)

	chatConn.Connect(claims.UserId, cfg.Token)
	notifConn.Connect(claims.UserId, cfg.Token)

	ctx := context.Background()

	if chatId == 0 && peerId != 0 {
		chat, err := restClient.ChatWithUser(ctx, peerId)
		if err != nil {
			logger.Fatal("open chat:", err)
		}
		chatId = chat.Id
	}
	if chatId == 0 {
		logger.Fatal("either -chat or -peer is required")
	}

	history, err := restClient.History(ctx, chatId, 1)
	if err != nil {
		logger.Fatal("history:", err)
	}
	convs.LoadHistory(chatId, history)
	convs.SetActive(chatId)

	if !chatConn.Send(protocol.JoinChat(chatId)) {
		logger.Println("join not sent, waiting for connection")
	}
	if err := restClient.MarkRead(ctx, chatId); err != nil {
		logger.Println("mark read:", err)
	}
	convs.MarkRead(chatId)

	go printMessages(claims.UserId, chatId, convs)
	go printNotifications(notifs)

	inputDone := make(chan struct{})
	go readInput(chatConn, chatId, logger, inputDone)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case <-inputDone:
	}

	notifConn.Disconnect()
	chatConn.Disconnect()
	logger.Println("shutdown complete")
}

func printMessage(localUser int, msg types.Message) {
	who := fmt.Sprintf("user %d", msg.SenderId)
	if msg.SenderId == localUser {
		who = "you"
	}
	fmt.Printf("[%s] %s: %s\n", msg.CreatedAt.Local().Format("15:04:05"), who, msg.Content)
}

func printMessages(localUser, chatId int, convs *store.ConversationStore) {
	var printed int
	for id := range convs.Updates() {
		if id != chatId {
			continue
		}

		msgs := convs.Messages(chatId)
		for ; printed < len(msgs); printed++ {
			printMessage(localUser, msgs[printed])
		}
	}
}

func printNotifications(notifs *store.NotificationStore) {
	var printed int
	for range notifs.Updates() {
		items := notifs.Notifications()
		for ; printed < len(items); printed++ {
			n := items[printed]
			fmt.Fprintf(os.Stderr, "*** %s: %s\n", n.Title, n.Message)
		}
	}
}

func readInput(conn *client.Conn, chatId int, logger *log.Logger, done chan struct{}) {
	defer close(done)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		if !conn.Send(protocol.SendMessage(chatId, text)) {
			logger.Println("message not sent, reconnecting...")
		}
	}
}
