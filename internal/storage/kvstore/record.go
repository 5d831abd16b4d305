package kvstore

import (
	"encoding/binary"
	"errors"

	"github.com/KilimcininKorOglu/oba/internal/storage"
)

// Every page used by a record chain reserves its last 8 bytes for the next
// page pointer, mirroring the free list's page-chaining convention. The
// head page additionally reserves its first 8 bytes for a keyLen/valLen
// header.
const (
	nextPtrSize  = 8
	headHdrSize  = 8
	pageDataSize = storage.PageSize - storage.PageHeaderSize
)

var errShortPage = errors.New("kvstore: truncated record page")

func payloadCapacity(isHead bool) int {
	cap := pageDataSize - nextPtrSize
	if isHead {
		cap -= headHdrSize
	}
	return cap
}

func getNext(data []byte) storage.PageID {
	return storage.PageID(binary.LittleEndian.Uint64(data[len(data)-nextPtrSize:]))
}

func setNext(data []byte, next storage.PageID) {
	binary.LittleEndian.PutUint64(data[len(data)-nextPtrSize:], uint64(next))
}

// decodeHead reads the key and value length recorded on a head page,
// returning just the key (used by catalog rebuild, which does not need
// the value).
func decodeHead(page *storage.Page) (key []byte, valLen uint32, err error) {
	if len(page.Data) < headHdrSize+nextPtrSize {
		return nil, 0, errShortPage
	}
	keyLen := binary.LittleEndian.Uint32(page.Data[0:4])
	valLen = binary.LittleEndian.Uint32(page.Data[4:8])
	cap := payloadCapacity(true)
	if int(keyLen) > cap {
		return nil, 0, errShortPage
	}
	key = append([]byte(nil), page.Data[headHdrSize:headHdrSize+int(keyLen)]...)
	return key, valLen, nil
}

// writeChain serializes key and value across one or more freshly allocated
// pages and returns the head page ID.
func writeChain(pm *storage.PageManager, key, value []byte) (storage.PageID, error) {
	headID, err := pm.AllocatePage(storage.PageTypeData)
	if err != nil {
		return 0, err
	}

	payload := make([]byte, len(key)+len(value))
	copy(payload, key)
	copy(payload[len(key):], value)

	var pages []*storage.Page
	head := storage.NewPage(headID, storage.PageTypeData)
	binary.LittleEndian.PutUint32(head.Data[0:4], uint32(len(key)))
	binary.LittleEndian.PutUint32(head.Data[4:8], uint32(len(value)))
	pages = append(pages, head)

	offset := 0
	n := copy(head.Data[headHdrSize:headHdrSize+payloadCapacity(true)], payload)
	offset += n

	prev := head
	for offset < len(payload) {
		nextID, err := pm.AllocatePage(storage.PageTypeOverflow)
		if err != nil {
			freeChainPages(pm, pages)
			return 0, err
		}
		next := storage.NewPage(nextID, storage.PageTypeOverflow)
		setNext(prev.Data, nextID)
		n := copy(next.Data[:payloadCapacity(false)], payload[offset:])
		offset += n
		pages = append(pages, next)
		prev = next
	}

	for _, p := range pages {
		if err := pm.WritePage(p); err != nil {
			freeChainPages(pm, pages)
			return 0, err
		}
	}

	return headID, nil
}

// readChain reconstructs the key and value stored starting at headID.
func readChain(pm *storage.PageManager, headID storage.PageID) (key, value []byte, err error) {
	head, err := pm.ReadPage(headID)
	if err != nil {
		return nil, nil, err
	}
	keyLen := binary.LittleEndian.Uint32(head.Data[0:4])
	valLen := binary.LittleEndian.Uint32(head.Data[4:8])
	total := int(keyLen) + int(valLen)

	payload := make([]byte, 0, total)
	capHead := payloadCapacity(true)
	chunk := head.Data[headHdrSize:]
	if len(chunk) > capHead {
		chunk = chunk[:capHead]
	}
	if len(chunk) > total {
		chunk = chunk[:total]
	}
	payload = append(payload, chunk...)

	next := getNext(head.Data)
	for len(payload) < total && next != 0 {
		page, err := pm.ReadPage(next)
		if err != nil {
			return nil, nil, err
		}
		chunk := page.Data[:payloadCapacity(false)]
		remaining := total - len(payload)
		if len(chunk) > remaining {
			chunk = chunk[:remaining]
		}
		payload = append(payload, chunk...)
		next = getNext(page.Data)
	}

	if len(payload) < total {
		return nil, nil, errShortPage
	}

	return payload[:keyLen], payload[keyLen:total], nil
}

// freeChain walks headID's page chain and frees every page in it.
func freeChain(pm *storage.PageManager, headID storage.PageID) error {
	next := headID
	for next != 0 {
		page, err := pm.ReadPage(next)
		if err != nil {
			return err
		}
		following := getNext(page.Data)
		if err := pm.FreePage(next); err != nil {
			return err
		}
		next = following
	}
	return nil
}

// freeChainPages frees pages that were allocated but never linked into a
// committed chain, used to clean up after a mid-write allocation failure.
func freeChainPages(pm *storage.PageManager, pages []*storage.Page) {
	for _, p := range pages {
		pm.FreePage(p.Header.PageID)
	}
}
