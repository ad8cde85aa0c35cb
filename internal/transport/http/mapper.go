package http

import (
	"encoding/json"

	"github.com/vovakirdan/dmwire-server/internal/core"
	"github.com/vovakirdan/dmwire-server/internal/proto"
	"github.com/vovakirdan/dmwire-server/internal/store"
)

func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error, error) {
	switch inbound.Type {
	case proto.InboundTypeJoin:
		var join proto.JoinData
		if err := json.Unmarshal(inbound.Data, &join); err != nil {
			return nil, nil, err
		}
		if join.PeerID == 0 {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "peerId is required"}, nil
		}
		return &core.Command{
			Kind:   core.CommandJoinConversation,
			PeerID: join.PeerID,
		}, nil, nil
	case proto.InboundTypeSend:
		var send proto.SendData
		if err := json.Unmarshal(inbound.Data, &send); err != nil {
			return nil, nil, err
		}
		if send.RecipientID == 0 {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "recipientId is required"}, nil
		}
		return &core.Command{
			Kind:    core.CommandSendMessage,
			PeerID:  send.RecipientID,
			Content: send.Content,
		}, nil, nil
	case proto.InboundTypeTypingStart, proto.InboundTypeTypingStop:
		var typing proto.TypingData
		if err := json.Unmarshal(inbound.Data, &typing); err != nil {
			return nil, nil, err
		}
		if typing.PeerID == 0 {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "peerId is required"}, nil
		}
		kind := core.CommandTypingStart
		if inbound.Type == proto.InboundTypeTypingStop {
			kind = core.CommandTypingStop
		}
		return &core.Command{
			Kind:   kind,
			PeerID: typing.PeerID,
		}, nil, nil
	case proto.InboundTypeRead:
		var read proto.ReadData
		if err := json.Unmarshal(inbound.Data, &read); err != nil {
			return nil, nil, err
		}
		if read.MessageID == 0 {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "messageId is required"}, nil
		}
		return &core.Command{
			Kind:      core.CommandMarkRead,
			MessageID: read.MessageID,
		}, nil, nil
	default:
		return nil, &proto.Error{Code: "invalid_message", Msg: "unknown message type"}, nil
	}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventWelcome:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventWelcome,
			Data: proto.WelcomeData{
				UserID:   event.User.ID,
				Username: event.User.Username,
				Protocol: proto.ProtocolVersion,
			},
		}
	case core.EventPresenceState:
		users := make([]proto.UserData, 0, len(event.Users))
		for _, u := range event.Users {
			users = append(users, proto.UserData{UserID: u.ID, Username: u.Username})
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventPresenceState,
			Data:  proto.PresenceStateData{Users: users},
		}
	case core.EventUserOnline:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventOnline,
			Data:  proto.UserData{UserID: event.User.ID, Username: event.User.Username},
		}
	case core.EventUserOffline:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventOffline,
			Data: proto.OfflineData{
				UserID:     event.User.ID,
				Username:   event.User.Username,
				LastSeenAt: event.LastSeenAt.Unix(),
			},
		}
	case core.EventMessageNew:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventMessageNew,
			Data:  messageToData(event.Message),
		}
	case core.EventMessageAck:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventMessageAck,
			Data:  messageToData(event.Message),
		}
	case core.EventTypingStart:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventTypingStart,
			Data:  proto.UserData{UserID: event.User.ID, Username: event.User.Username},
		}
	case core.EventTypingStop:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventTypingStop,
			Data:  proto.UserData{UserID: event.User.ID, Username: event.User.Username},
		}
	case core.EventReadAck:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventReadAck,
			Data: proto.ReadAckData{
				MessageID: event.MessageID,
				ReadAt:    event.ReadAt.Unix(),
			},
		}
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}

func messageToData(msg *store.Message) proto.MessageData {
	data := proto.MessageData{
		ID:          msg.ID,
		SenderID:    msg.SenderID,
		RecipientID: msg.RecipientID,
		Content:     msg.Body,
		CreatedAt:   msg.CreatedAt.Unix(),
	}
	if msg.DeliveredAt != nil {
		ts := msg.DeliveredAt.Unix()
		data.DeliveredAt = &ts
	}
	if msg.ReadAt != nil {
		ts := msg.ReadAt.Unix()
		data.ReadAt = &ts
	}
	return data
}
